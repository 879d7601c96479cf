package entity

import "time"

type InspectOptions struct {
	InteractiveOnly bool
	MaxDepth        *int
	Flat            bool
	// IncludeHidden defaults to !InteractiveOnly when nil.
	IncludeHidden *bool
}

type TapRequest struct {
	Query  string
	X, Y   *float64
	Strict bool
}

type ScrollCommand struct {
	Direction    string
	UntilVisible string
	Strict       bool
}

type AssertState string

const (
	AssertExists  AssertState = "exists"
	AssertVisible AssertState = "visible"
	AssertHidden  AssertState = "hidden"
)

type AssertRequest struct {
	Query  string
	State  string
	Strict bool
}

type WaitRequest struct {
	Query   string
	State   string
	Timeout time.Duration
	Strict  bool
	Scroll  bool
}

type ContextOptions struct {
	Brief          bool
	IncludeLogs    bool
	ScreenshotPath string
}
