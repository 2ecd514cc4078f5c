package model

// Script is an inline or external script found in the document, registered by
// the element it belongs to.
type Script struct {
	Name   string     `json:"name"`
	Parent Scope      `json:"parent"`
	Script ScriptInfo `json:"script"`
}

// ScriptInfo describes the script source.
type ScriptInfo struct {
	ID           string `json:"id,omitempty"`
	Type         string `json:"type"`
	ScriptFormat string `json:"scriptFormat,omitempty"`
	Body         string `json:"body,omitempty"`
	Resource     string `json:"resource,omitempty"`
}

// Timer is a timer event definition found in the document.
type Timer struct {
	Name   string    `json:"name"`
	Parent Scope     `json:"parent"`
	Timer  TimerInfo `json:"timer"`
}

// TimerInfo carries the literal timer expressions. At most one is usually set.
type TimerInfo struct {
	ID           string `json:"id,omitempty"`
	Type         string `json:"type"`
	TimeDuration string `json:"timeDuration,omitempty"`
	TimeCycle    string `json:"timeCycle,omitempty"`
	TimeDate     string `json:"timeDate,omitempty"`
}
