package workflow

import "genstudio/internal/domain"

// Shape describes how the node graph is wrapped inside a template document.
type Shape int

const (
	// ShapeManaged documents carry the node graph as a JSON string under
	// "promptContent", with nodes nested under its "prompt" key.
	ShapeManaged Shape = iota
	// ShapeEngine documents are the raw node graph.
	ShapeEngine
)

// Slot names a caller supplied parameter.
type Slot string

const (
	SlotPrompt   Slot = "prompt"
	SlotNegative Slot = "negative"
	SlotModel    Slot = "model"
	SlotWidth    Slot = "width"
	SlotHeight   Slot = "height"
	SlotBatch    Slot = "batch"
	SlotLength   Slot = "length"
	SlotSeed     Slot = "seed"
	SlotSteps    Slot = "steps"
	SlotCFG      Slot = "cfg"
)

// Target is one node input a slot writes to.
type Target struct {
	Node  string
	Input string
}

// Binding maps a slot onto the node inputs that receive it.
type Binding struct {
	Slot     Slot
	Targets  []Target
	Required bool
}

// Layout is the slot map of one template document.
type Layout struct {
	Shape    Shape
	Bindings []Binding
}

func bind(slot Slot, required bool, targets ...Target) Binding {
	return Binding{Slot: slot, Targets: targets, Required: required}
}

func in(node, input string) Target { return Target{Node: node, Input: input} }

var defaultLayouts = map[domain.JobKind]Layout{
	domain.JobKindImage: {
		Shape: ShapeManaged,
		Bindings: []Binding{
			bind(SlotPrompt, true, in("6", "text")),
			bind(SlotNegative, true, in("7", "text")),
			bind(SlotModel, false, in("254", "ckpt_name")),
			bind(SlotWidth, false, in("257", "width")),
			bind(SlotHeight, false, in("257", "height")),
			bind(SlotBatch, false, in("257", "batch_size")),
			bind(SlotSeed, true, in("258", "seed")),
			bind(SlotSteps, false, in("258", "steps")),
			bind(SlotCFG, false, in("258", "cfg")),
		},
	},
	domain.JobKindComfyUI: {
		Shape: ShapeEngine,
		Bindings: []Binding{
			bind(SlotPrompt, true, in("6", "text")),
			bind(SlotNegative, true, in("7", "text")),
			bind(SlotModel, false, in("4", "ckpt_name")),
			bind(SlotWidth, false, in("5", "width")),
			bind(SlotHeight, false, in("5", "height")),
			bind(SlotBatch, false, in("5", "batch_size")),
			bind(SlotSeed, true, in("3", "seed")),
			bind(SlotSteps, false, in("3", "steps")),
			bind(SlotCFG, false, in("3", "cfg")),
		},
	},
	domain.JobKindVideo: {
		Shape: ShapeManaged,
		Bindings: []Binding{
			bind(SlotPrompt, true, in("88", "value")),
			bind(SlotNegative, true, in("7", "text")),
			bind(SlotWidth, false, in("112", "Xi"), in("112", "Xf"), in("50", "width")),
			bind(SlotHeight, false, in("112", "Yi"), in("112", "Yf"), in("50", "height")),
			bind(SlotLength, false, in("50", "length")),
			bind(SlotSeed, true, in("82", "seed")),
		},
	},
}

// DefaultLayout returns the built-in slot map for kind.
func DefaultLayout(kind domain.JobKind) (Layout, bool) {
	layout, ok := defaultLayouts[kind]
	return layout, ok
}

func slotValue(slot Slot, req domain.JobRequest) (any, bool) {
	switch slot {
	case SlotPrompt:
		return req.Prompt, true
	case SlotNegative:
		return req.Negative, true
	case SlotModel:
		return req.Model, req.Model != ""
	case SlotWidth:
		return req.Width, true
	case SlotHeight:
		return req.Height, true
	case SlotBatch:
		return req.Batch, true
	case SlotLength:
		return req.Length, true
	case SlotSeed:
		return req.Seed, true
	case SlotSteps:
		return req.Steps, true
	case SlotCFG:
		return req.CFG, true
	}
	return nil, false
}
