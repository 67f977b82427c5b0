package store

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/model"
)

// maxLineBytes bounds a single NDJSON record.
const maxLineBytes = 4 << 20

// ReadBusinesses decodes a business snapshot. Both a JSON array and
// newline-delimited JSON are accepted. Malformed NDJSON lines are logged and
// skipped.
func ReadBusinesses(r io.Reader) ([]model.Business, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: read businesses")
	}

	if first == '[' {
		var out []model.Business
		if err := json.NewDecoder(br).Decode(&out); err != nil {
			return nil, eris.Wrap(err, "store: decode business array")
		}
		return out, nil
	}

	log := zap.L().With(zap.String("component", "businesses"))
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		out     []model.Business
		line    int
		skipped int
	)
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var b model.Business
		if err := json.Unmarshal(raw, &b); err != nil {
			skipped++
			log.Warn("skipping malformed business record", zap.Int("line", line), zap.Error(err))
			continue
		}
		out = append(out, b)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "store: scan businesses")
	}
	if skipped > 0 {
		log.Info("business records skipped", zap.Int("skipped", skipped), zap.Int("loaded", len(out)))
	}
	return out, nil
}

// LoadBusinesses reads the business snapshot at path.
func LoadBusinesses(path string) ([]model.Business, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open businesses %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadBusinesses(f)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c, br.UnreadByte()
	}
}
