package recovery

type Strategy interface {
	OnError(ctx Context, err error, location Location) Action
}

// Location identifies where in the pipeline an error surfaced.
type Location struct {
	Stage     string
	ImagePath string
	Detail    string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)

type Context interface{ Done() <-chan struct{} }
