// ABOUTME: Canned example argument offered by the input screens.
// ABOUTME: Shared by the web page and the terminal input panel.
package reasoning

// ExampleArgument is loaded by "Load Example Argument" in every host.
const ExampleArgument = "We should clearly ban all cars from the city center immediately. " +
	"Pollution is killing the planet and making kids sick. " +
	"Plus, I saw a study on Twitter that said car-free cities are 50% happier. " +
	"If we don't act now, the city will be unlivable in 5 years."
