// pkg/layout/rewrite.go
package layout

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arc-language/layinstall/pkg/core"
)

// Apply returns line with the first match of the pattern replaced.
func (s Substitution) Apply(line string) string {
	loc := s.Pattern.FindStringIndex(line)
	if loc == nil {
		return line
	}
	return line[:loc[0]] + s.Replacement + line[loc[1]:]
}

// RewriteLine applies every substitution, in order, to one line.
func RewriteLine(line string, subs []Substitution) string {
	for _, s := range subs {
		line = s.Apply(line)
	}
	return line
}

// RewriteStream copies r to w line by line through subs. Line terminators
// are kept as they are, including a missing final newline.
func RewriteStream(r io.Reader, w io.Writer, subs []Substitution) (int64, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	var written int64
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			body, eol := splitEOL(line)
			n, werr := bw.WriteString(RewriteLine(body, subs) + eol)
			written += int64(n)
			if werr != nil {
				return written, werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

func splitEOL(line string) (string, string) {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2], "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

func (i *Installer) rewrite(rw ConfigRewrite) error {
	in, err := i.fs.Open(rw.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return core.MissingSourceError("rewrite", rw.Source, err)
		}
		return core.SystemCallError("rewrite", rw.Source, err)
	}
	defer in.Close()

	if err := i.fs.MkdirAll(filepath.Dir(rw.Dest), 0755); err != nil {
		return core.SystemCallError("mkdir", filepath.Dir(rw.Dest), err)
	}
	out, err := i.fs.OpenFile(rw.Dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return core.SystemCallError("rewrite", rw.Dest, err)
	}

	n, err := RewriteStream(in, out, rw.Substitutions)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return core.SystemCallError("rewrite", rw.Dest, err)
	}

	i.report.Files++
	i.logger.Debug("rewrote config", "src", rw.Source, "dst", rw.Dest, "bytes", n)
	return nil
}
