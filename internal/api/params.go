package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/gapscout/internal/model"
)

// attributeParams are the boolean shortcuts accepted next to ?attributes=.
var attributeParams = []string{"byob", "delivery", "outdoor", "kid_friendly", "late_night", "wifi", "reservations"}

type params struct {
	v   url.Values
	err error
}

func (p *params) str(name string) string {
	return strings.TrimSpace(p.v.Get(name))
}

func (p *params) integer(name string, def int) int {
	s := p.str(name)
	if s == "" || p.err != nil {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.err = &paramError{name: name, value: s}
		return def
	}
	return n
}

func (p *params) number(name string, def float64) float64 {
	s := p.str(name)
	if s == "" || p.err != nil {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = &paramError{name: name, value: s}
		return def
	}
	return f
}

func (p *params) floatPtr(name string) *float64 {
	if p.str(name) == "" {
		return nil
	}
	f := p.number(name, 0)
	if p.err != nil {
		return nil
	}
	return &f
}

func (p *params) flag(name string) bool {
	s := p.str(name)
	if s == "" || p.err != nil {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.err = &paramError{name: name, value: s}
		return false
	}
	return b
}

func (p *params) list(name string) []string {
	var out []string
	for _, raw := range p.v[name] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// attributes merges ?attributes=a,b with the boolean shortcut flags.
func (p *params) attributes() []string {
	out := p.list("attributes")
	for _, name := range attributeParams {
		if p.flag(name) {
			out = append(out, name)
		}
	}
	return out
}

func (p *params) risks(name string) []model.RiskLevel {
	var out []model.RiskLevel
	for _, s := range p.list(name) {
		out = append(out, model.RiskLevel(strings.ToLower(s)))
	}
	return out
}
