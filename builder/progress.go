package builder

import (
	"fmt"
	"io"

	"github.com/cheggaaa/pb/v3"
)

const barTmpl = `{{ blue %q }} {{ bar . "<" "-" (cycle . "↖" "↗" "↘" "↙" ) "." ">"}} {{counters .}} `

// stageBar is a progress bar over the items of one list stage. A nil bar
// does nothing, which is what callers get when progress output is off.
type stageBar struct {
	bar *pb.ProgressBar
}

func newStageBar(out io.Writer, title string, total int) *stageBar {
	if out == nil || total == 0 {
		return &stageBar{}
	}
	tmpl := pb.ProgressBarTemplate(fmt.Sprintf(barTmpl, title+": "))
	return &stageBar{bar: tmpl.New(total).SetWriter(out).Start()}
}

func (b *stageBar) step() {
	if b.bar != nil {
		b.bar.Increment()
	}
}

func (b *stageBar) done() {
	if b.bar != nil {
		b.bar.Finish()
	}
}
