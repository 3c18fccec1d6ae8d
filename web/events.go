// ABOUTME: Input events posted by the browser (pointer, wheel, pinch, pan, resize) and their validation.
// ABOUTME: The same JSON shape arrives over POST /sessions/{id}/events and the websocket.
package web

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Event types.
const (
	EventPointerDown   = "pointerdown"
	EventPointerMove   = "pointermove"
	EventPointerUp     = "pointerup"
	EventPointerLeave  = "pointerleave"
	EventWheel         = "wheel"
	EventPinch         = "pinch"
	EventZoom          = "zoom"
	EventPan           = "pan"
	EventResize        = "resize"
	EventReset         = "reset"
	EventFit           = "fit"
	EventHoverNext     = "hover_next"
	EventSelectHovered = "select_hovered"

	fitPadding = 40
)

// Event is one unit of user input in surface (screen) coordinates.
type Event struct {
	Type   string  `json:"type" validate:"required,oneof=pointerdown pointermove pointerup pointerleave wheel pinch zoom pan resize reset fit hover_next select_hovered"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"delta_y"`
	Ratio  float64 `json:"ratio" validate:"required_if=Type pinch,required_if=Type zoom,gte=0"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Width  float64 `json:"width" validate:"required_if=Type resize,gte=0,lte=8192"`
	Height float64 `json:"height" validate:"required_if=Type resize,gte=0,lte=8192"`
	Step   int     `json:"step"`
}

var eventValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate reports malformed events.
func (e Event) Validate() error {
	err := eventValidator.Struct(e)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid %q event: %s", e.Type, strings.Join(problems, ", "))
}
