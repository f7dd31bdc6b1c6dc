package code

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/jonwraymond/cellexec/task"
)

// taskValue exposes a task to cells. It supports the attributes name and
// done.
type taskValue struct {
	t *task.Task
}

var _ starlark.HasAttrs = (*taskValue)(nil)

func (v *taskValue) String() string        { return fmt.Sprintf("<task %s>", v.t.Name()) }
func (v *taskValue) Type() string          { return "task" }
func (v *taskValue) Freeze()               {}
func (v *taskValue) Truth() starlark.Bool  { return starlark.True }
func (v *taskValue) Hash() (uint32, error) { return starlark.String(v.t.Name()).Hash() }

func (v *taskValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(v.t.Name()), nil
	case "done":
		select {
		case <-v.t.Done():
			return starlark.True, nil
		default:
			return starlark.False, nil
		}
	}
	return nil, nil
}

func (v *taskValue) AttrNames() []string { return []string{"done", "name"} }
