package automation

// EditorKind is the shape of the located input.
type EditorKind string

const (
	EditorProseMirror     EditorKind = "prosemirror"
	EditorContentEditable EditorKind = "contenteditable"
	EditorTextarea        EditorKind = "textarea"
)

// EditorStrategy is one selector in the ordered editor lookup. When MinSize
// is set, the first match in document order that is wider than
// MinEditorWidth and taller than MinEditorHeight wins.
type EditorStrategy struct {
	Name     string     `json:"name"`
	Selector string     `json:"selector"`
	Kind     EditorKind `json:"kind"`
	MinSize  bool       `json:"minSize,omitempty"`
}

// ColorRange is an inclusive RGB box.
type ColorRange struct {
	RMin int `json:"rMin"`
	RMax int `json:"rMax"`
	GMin int `json:"gMin"`
	GMax int `json:"gMax"`
	BMin int `json:"bMin"`
	BMax int `json:"bMax"`
}

// Contains reports whether the colour r,g,b is inside the box.
func (c ColorRange) Contains(r, g, b int) bool {
	return r >= c.RMin && r <= c.RMax && g >= c.GMin && g <= c.GMax && b >= c.BMin && b <= c.BMax
}

// Heuristics are the page-specific selectors and thresholds the sequence
// relies on. They track the target page's markup and are expected to drift.
type Heuristics struct {
	EditorStrategies []EditorStrategy
	MinEditorWidth   float64
	MinEditorHeight  float64

	ThinkingKeywords []string

	SubmitColor    ColorRange
	SubmitKeywords []string

	MessageSelector  string
	LoadingSelector  string
	MessageThreshold int

	PreviewLength int
}

// DefaultHeuristics matches the claude.ai new-chat page.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		EditorStrategies: []EditorStrategy{
			{Name: "prosemirror", Selector: `.ProseMirror[contenteditable="true"]`, Kind: EditorProseMirror},
			{Name: "placeholder", Selector: `[contenteditable="true"][data-placeholder]`, Kind: EditorContentEditable},
			{Name: "fieldset", Selector: `fieldset [contenteditable="true"]`, Kind: EditorContentEditable},
			{Name: "sized", Selector: `[contenteditable="true"]`, Kind: EditorContentEditable, MinSize: true},
			{Name: "textarea", Selector: `textarea`, Kind: EditorTextarea},
			{Name: "any", Selector: `[contenteditable="true"]`, Kind: EditorContentEditable},
		},
		MinEditorWidth:  200,
		MinEditorHeight: 30,

		ThinkingKeywords: []string{"thinking", "extended"},

		SubmitColor:    ColorRange{RMin: 180, RMax: 220, GMin: 80, GMax: 120, BMin: 50, BMax: 80},
		SubmitKeywords: []string{"send", "submit"},

		MessageSelector:  `[class*="message"], [role="article"]`,
		LoadingSelector:  `[class*="loading"], [class*="spinner"], .animate-pulse`,
		MessageThreshold: 2,

		PreviewLength: 1000,
	}
}
