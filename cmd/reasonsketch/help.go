// ABOUTME: Help display for the reasonsketch CLI with grouped flags, examples, and provider status.
// ABOUTME: Provider rows come from the same environment detection the analyzer uses.
package main

import (
	"fmt"
	"io"

	"github.com/2389-research/reasonsketch/analysis"
)

func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "reasonsketch %s: map the structure of an argument\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  reasonsketch [flags] <file|->          Analyze reasoning text and print the settled SVG")
	fmt.Fprintln(w, "  reasonsketch -input analysis.json      Render a stored analysis without a provider call")
	fmt.Fprintln(w, "  reasonsketch -tui [file]               Explore interactively in the terminal")
	fmt.Fprintln(w, "  reasonsketch -server [-port 2389]      Start the web host")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Render Flags:")
	fmt.Fprintln(w, "  -format <fmt>         svg, json, dot, png (default: svg; png needs graphviz)")
	fmt.Fprintln(w, "  -svg <path>           Write output to a file instead of stdout")
	fmt.Fprintln(w, "  -width <px>           Canvas width (default: 800)")
	fmt.Fprintln(w, "  -height <px>          Canvas height (default: 600)")
	fmt.Fprintln(w, "  -no-legend            Omit the node type legend")
	fmt.Fprintln(w, "  -watch                Re-render when the input file changes")
	fmt.Fprintln(w, "  -config <file>        Layout tuning YAML")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Analysis Flags:")
	fmt.Fprintln(w, "  -mode <mode>          map_reasoning, rewrite_reasoning, teach_thinking")
	fmt.Fprintln(w, "  -provider <name>      gemini, openai, anthropic")
	fmt.Fprintln(w, "  -model <name>         Model override")
	fmt.Fprintln(w, "  -base-url <url>       Custom base URL for OpenAI-compatible endpoints")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -port <port>          Web server port (default: 2389)")
	fmt.Fprintln(w, "  -verbose              Debug logging")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  echo 'We should ban cars because pollution hurts kids.' | reasonsketch - > map.svg")
	fmt.Fprintln(w, "  reasonsketch -input saved.json -format dot")
	fmt.Fprintln(w, "  reasonsketch -server -input saved.json -watch")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Providers:")
	status := analysis.DetectProviders()
	for _, p := range status.Providers {
		marker := " "
		if p.Name == status.DefaultProvider {
			marker = "*"
		}
		fmt.Fprintf(w, " %s%-10s %-10s %s\n", marker, p.Name, keyStatus(p.HasAPIKey), p.Model)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Analysis needs one API key. Stored analyses (-input) work without one.")
}

func keyStatus(set bool) string {
	if set {
		return "[set]"
	}
	return "[not set]"
}
