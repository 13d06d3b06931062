package policy

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

var (
	ErrUnknownDirective = errors.New("unknown directive")
	ErrMissingValue     = errors.New("directive requires a value")
)

type flagDirective func(p *Policy)

var flagDirectives = map[string]flagDirective{
	"daily":   func(p *Policy) { p.Daily = true },
	"weekly":  func(p *Policy) { p.Weekly = true },
	"monthly": func(p *Policy) { p.Monthly = true },
	"yearly":  func(p *Policy) { p.Yearly = true },

	"copy":           func(p *Policy) { p.Copy = true },
	"nocopy":         func(p *Policy) { p.Copy = false },
	"copytruncate":   func(p *Policy) { p.CopyTruncate = true },
	"nocopytruncate": func(p *Policy) { p.CopyTruncate = false },
	"nocreate":       func(p *Policy) { p.Create = false },

	"compress":        func(p *Policy) { p.Compress = true },
	"nocompress":      func(p *Policy) { p.Compress = false },
	"delaycompress":   func(p *Policy) { p.DelayCompress = true },
	"nodelaycompress": func(p *Policy) { p.DelayCompress = false },

	"dateext":   func(p *Policy) { p.DateExt = true },
	"nodateext": func(p *Policy) { p.DateExt = false },
	"noolddir":  func(p *Policy) { p.OldDir = "" },

	"missingok":   func(p *Policy) { p.MissingOK = true },
	"nomissingok": func(p *Policy) { p.MissingOK = false },
	"ifempty":     func(p *Policy) { p.IfEmpty = true },
	"notifempty":  func(p *Policy) { p.IfEmpty = false },
	"shred":       func(p *Policy) { p.Shred = true },
	"noshred":     func(p *Policy) { p.Shred = false },

	"sharedscripts":   func(p *Policy) { p.SharedScripts = true },
	"nosharedscripts": func(p *Policy) { p.SharedScripts = false },

	"nomail":    func(p *Policy) { p.Mail.Address = "" },
	"mailfirst": func(p *Policy) { p.Mail.MailLast = false },
	"maillast":  func(p *Policy) { p.Mail.MailLast = true },
	"smtpssl":   func(p *Policy) { p.Mail.UseSSL = true },
}

type valueDirective func(p *Policy, value string) error

var valueDirectives = map[string]valueDirective{
	"size":        func(p *Policy, v string) (err error) { p.Size, err = parseSize(v); return },
	"minsize":     func(p *Policy, v string) (err error) { p.MinSize, err = parseSize(v); return },
	"rotate":      func(p *Policy, v string) (err error) { p.Rotate, err = parseCount(v); return },
	"maxage":      func(p *Policy, v string) (err error) { p.MaxAge, err = parseCount(v); return },
	"start":       func(p *Policy, v string) (err error) { p.Start, err = parseCount(v); return },
	"shredcycles": func(p *Policy, v string) (err error) { p.ShredCycles, err = parseCount(v); return },
	"smtpport":    func(p *Policy, v string) (err error) { p.Mail.Port, err = parseCount(v); return },

	"compressext": func(p *Policy, v string) error { p.CompressExt = strings.TrimPrefix(v, "."); return nil },
	"dateformat":  func(p *Policy, v string) error { p.DateFormat = v; return nil },
	"olddir":      func(p *Policy, v string) error { p.OldDir = v; return nil },
	"include":     func(p *Policy, v string) error { p.Include = v; return nil },
	"mail":        func(p *Policy, v string) error { p.Mail.Address = v; return nil },
	"smtpfrom":    func(p *Policy, v string) error { p.Mail.From = v; return nil },
	"smtpserver":  func(p *Policy, v string) error { p.Mail.Server = v; return nil },
	"smtpuser":    func(p *Policy, v string) error { p.Mail.Username = v; return nil },
	"smtpuserpwd": func(p *Policy, v string) error { p.Mail.Password = v; return nil },
	"tabooext":    applyTabooExt,
}

// Interpreter feeds directive lines into a Policy. Script blocks span
// several lines, so the interpreter keeps track of the block being read.
type Interpreter struct {
	policy *Policy
	script *[]string
}

func NewInterpreter(p *Policy) *Interpreter {
	return &Interpreter{policy: p}
}

// InScript reports whether lines are currently collected into a script.
func (in *Interpreter) InScript() bool {
	return in.script != nil
}

// Apply interprets one trimmed, non-empty line.
func (in *Interpreter) Apply(line string) error {
	keyword, value := splitDirective(line)
	keyword = strings.ToLower(keyword)

	if in.script != nil {
		if keyword == "endscript" {
			in.script = nil
			return nil
		}

		*in.script = append(*in.script, line)
		return nil
	}

	p := in.policy

	switch keyword {
	case "prerotate":
		return in.startScript(&p.PreRotate)
	case "postrotate":
		return in.startScript(&p.PostRotate)
	case "firstaction":
		return in.startScript(&p.FirstAction)
	case "lastaction":
		return in.startScript(&p.LastAction)
	case "endscript":
		return errors.New("endscript without a script block")
	case "create":
		// mode, owner and group are accepted but not applied
		p.Create = true
		return nil
	}

	if apply, ok := flagDirectives[keyword]; ok {
		apply(p)
		return nil
	}

	if apply, ok := valueDirectives[keyword]; ok {
		if value == "" {
			return errors.Wrap(ErrMissingValue, keyword)
		}

		return errors.Wrapf(apply(p, value), "invalid value for %s", keyword)
	}

	return errors.Wrap(ErrUnknownDirective, keyword)
}

func (in *Interpreter) startScript(target *[]string) error {
	*target = nil
	in.script = target

	return nil
}

func splitDirective(line string) (string, string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}

	value := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	value = strings.Trim(value, "\"")

	return fields[0], value
}

func applyTabooExt(p *Policy, value string) error {
	appendMode := strings.HasPrefix(value, "+")
	value = strings.TrimSpace(strings.TrimPrefix(value, "+"))

	list := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })

	if !appendMode {
		p.TabooExt = nil
	}

	p.TabooExt = append(p.TabooExt, list...)

	return nil
}

func parseCount(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Errorf("negative value %d", n)
	}

	return n, nil
}

// parseSize accepts a byte count with an optional k, M or G suffix. Suffixes
// are binary multiples, as in the classic logrotate.
func parseSize(value string) (int64, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "+")

	if n := len(v); n > 0 {
		switch v[n-1] {
		case 'k', 'K':
			v = v[:n-1] + "KiB"
		case 'm', 'M':
			v = v[:n-1] + "MiB"
		case 'g', 'G':
			v = v[:n-1] + "GiB"
		}
	}

	size, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, err
	}

	return int64(size), nil
}
