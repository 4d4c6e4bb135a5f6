package menu

// Target is where a button leads: an in-bot action or an external link.
type Target struct {
	Action string
	URL    string
}

// ActionTarget points a button at a routable action identifier.
func ActionTarget(id string) Target { return Target{Action: id} }

// LinkTarget points a button at an external URL.
func LinkTarget(url string) Target { return Target{URL: url} }

// IsLink reports whether the target opens an external URL.
func (t Target) IsLink() bool { return t.URL != "" }

// Button is a single labelled control.
type Button struct {
	Label  string
	Target Target
}

// ViewOutput is the render contract handed to the transport.
type ViewOutput struct {
	Text    string
	Buttons [][]Button
}

// Targets flattens the button layout into the ordered list of targets.
func (v ViewOutput) Targets() []Target {
	var out []Target
	for _, row := range v.Buttons {
		for _, b := range row {
			out = append(out, b.Target)
		}
	}
	return out
}
