package scripting

import (
	"context"
	"errors"
	"strings"

	"github.com/dop251/goja"
)

// ErrPageOutOfRange is returned by StaticText for an invalid page index.
var ErrPageOutOfRange = errors.New("page index out of range")

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	return &GojaEngine{vm: vm}
}

func (e *GojaEngine) run(ctx context.Context, script string) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	defer func() {
		close(done)
		<-stopped
		e.vm.ClearInterrupt()
	}()

	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok && cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	val, err := e.run(ctx, script)
	if err != nil {
		return nil, err
	}
	return val.Export(), nil
}

func (e *GojaEngine) Truthy(ctx context.Context, script string) (bool, error) {
	val, err := e.run(ctx, script)
	if err != nil {
		return false, err
	}
	return val.ToBoolean(), nil
}

// RegisterDocument defines the globals text, pageCount, pageText(i) and
// contains(s). contains is case-insensitive; pageText returns null for an
// invalid index.
func (e *GojaEngine) RegisterDocument(doc TextView) error {
	text := doc.Text()
	lower := strings.ToLower(text)
	if err := e.vm.Set("text", text); err != nil {
		return err
	}
	if err := e.vm.Set("pageCount", doc.PageCount()); err != nil {
		return err
	}
	if err := e.vm.Set("pageText", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Null()
		}
		t, err := doc.PageText(int(call.Arguments[0].ToInteger()))
		if err != nil {
			return goja.Null()
		}
		return e.vm.ToValue(t)
	}); err != nil {
		return err
	}
	return e.vm.Set("contains", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return e.vm.ToValue(false)
		}
		needle := strings.ToLower(call.Arguments[0].String())
		return e.vm.ToValue(strings.Contains(lower, needle))
	})
}
