package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var (
	// ErrResolve indicates a module or template could not be found
	ErrResolve = errors.New("resolution failed")
	// ErrWrite indicates the output directory could not be cleaned or written
	ErrWrite = errors.New("write failed")
	// ErrProcessor indicates a transform or optimization pass rejected its input
	ErrProcessor = errors.New("processor failed")
	// ErrNameCollision indicates two outputs expanded to the same file name
	ErrNameCollision = errors.New("output name collision")
)

// Diagnostic is one message reported by esbuild or a processor.
type Diagnostic struct {
	File   string
	Line   int
	Column int
	Text   string
}

func (d Diagnostic) String() string {
	switch {
	case d.File == "":
		return d.Text
	case d.Line == 0:
		return fmt.Sprintf("%s: %s", d.File, d.Text)
	default:
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Text)
	}
}

// StageError reports the stage, pass and files a build failed in.
type StageError struct {
	Stage StageName
	// Kind is one of ErrResolve, ErrWrite, ErrProcessor or ErrNameCollision
	Kind error
	// Pass names the processor or minimizer, if any
	Pass        string
	Diagnostics []Diagnostic
	Err         error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %s: %v", e.Stage, e.Kind)
	if e.Pass != "" {
		fmt.Fprintf(&b, " in %s", e.Pass)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stageErr(stage StageName, kind error, pass string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Pass: pass, Err: err}
}

// fromMessages converts esbuild errors into a StageError. Unresolvable imports are
// resolution errors, everything else is a processor error.
func fromMessages(stage StageName, pass string, msgs []api.Message) *StageError {
	e := &StageError{Stage: stage, Kind: ErrProcessor, Pass: pass}

	for _, msg := range msgs {
		if strings.Contains(msg.Text, "Could not resolve") {
			e.Kind = ErrResolve
		}

		d := Diagnostic{Text: msg.Text}
		if msg.PluginName != "" {
			d.Text = fmt.Sprintf("[%s] %s", msg.PluginName, msg.Text)
		}
		if msg.Location != nil {
			d.File = msg.Location.File
			d.Line = msg.Location.Line
			d.Column = msg.Location.Column
		}
		e.Diagnostics = append(e.Diagnostics, d)
	}

	return e
}
