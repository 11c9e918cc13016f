package pipeline

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"

	"github.com/mwrobel/pmagent/internal/browser"
	"github.com/mwrobel/pmagent/internal/resolve"
)

// readAnswerJS reads whatever the operator typed into the answer control.
const readAnswerJS = `() => {
	const ta = document.querySelector('form textarea, textarea');
	if (ta && ta.value.trim()) return ta.value.trim();
	const ce = document.querySelector('[contenteditable="true"]');
	if (ce && ce.innerText.trim()) return ce.innerText.trim();
	return '';
}`

// pageOperator implements manual answer entry for interactive runs: it
// suspends until the operator confirms on stdin, then reads the answer
// control's current value from the page.
type pageOperator struct {
	page browser.Page
	in   *bufio.Reader
}

// NewPageOperator creates the interactive operator. in is normally
// os.Stdin.
func NewPageOperator(page browser.Page, in io.Reader) resolve.Operator {
	return &pageOperator{page: page, in: bufio.NewReader(in)}
}

func (o *pageOperator) RequestAnswer(ctx context.Context, q string) (string, bool) {
	log.Printf("manual entry requested for question: %s", q)
	log.Printf("type the answer into the form in the browser, then press Enter here")

	if _, err := o.in.ReadString('\n'); err != nil && err != io.EOF {
		return "", false
	}
	if err := ctx.Err(); err != nil {
		return "", false
	}

	var answer string
	if err := o.page.Eval(ctx, readAnswerJS, &answer); err != nil {
		log.Printf("reading answer field failed: %v", err)
		return "", false
	}
	answer = strings.TrimSpace(answer)
	return answer, answer != ""
}
