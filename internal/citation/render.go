package citation

import (
	"bufio"
	"io"
	"strings"

	"github.com/Epistemic-Technology/arxiv-export/internal/record"
)

// Separator goes between consecutive entries.
const Separator = "\n\n"

// Render formats records as one document: one block per record, blocks
// separated by a blank line.
func Render(f Format, records []record.Record) (string, error) {
	emitter, err := NewEmitter(f)
	if err != nil {
		return "", err
	}
	blocks := make([]string, 0, len(records))
	for _, r := range records {
		blocks = append(blocks, emitter.Emit(r))
	}
	return strings.Join(blocks, Separator), nil
}

// Write renders records to w, ending the document with a newline. It
// returns the number of bytes written.
func Write(w io.Writer, f Format, records []record.Record) (int, error) {
	doc, err := Render(f, records)
	if err != nil {
		return 0, err
	}
	if doc == "" {
		return 0, nil
	}
	return io.WriteString(w, doc+"\n")
}

// CountEntries counts the entries in a rendered document by looking for
// lines that open an entry of format f.
func CountEntries(f Format, text string) int {
	opener := f.opener()
	if opener == "" {
		return 0
	}
	count := 0
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), opener) {
			count++
		}
	}
	return count
}
