package policy

const (
	DefaultCompressExt = "gz"
	DefaultDateFormat  = "-%Y%m%d"
	DefaultShredCycles = 3
)

var DefaultTabooExt = []string{
	".swp", ".rpmsave", ".rpmorig", ".rpmnew",
	".dpkg-old", ".dpkg-dist", ".dpkg-new",
	".cfsaved", ".disabled", ".bak",
}

type Mail struct {
	Address  string
	From     string
	Server   string
	Port     int
	Username string
	Password string
	UseSSL   bool

	// MailLast mails files about to be removed instead of freshly rotated ones
	MailLast bool
}

// Enabled reports whether enough is configured to deliver a message.
func (m Mail) Enabled() bool {
	return m.Address != "" && m.Server != "" && m.Port != 0
}

// Policy is the rotation policy of one configuration section. The global
// section is a Policy too; every other section starts as a Clone of the
// global one at the moment the section is opened.
type Policy struct {
	// triggers
	Size    int64
	MinSize int64
	Daily   bool
	Weekly  bool
	Monthly bool
	Yearly  bool

	// retention
	Rotate int
	MaxAge int
	Start  int

	// transforms
	Copy          bool
	CopyTruncate  bool
	Create        bool
	Compress      bool
	CompressExt   string
	DelayCompress bool
	DateExt       bool
	DateFormat    string
	OldDir        string

	MissingOK   bool
	IfEmpty     bool
	Shred       bool
	ShredCycles int

	// hooks
	SharedScripts bool
	PreRotate     []string
	PostRotate    []string
	FirstAction   []string
	LastAction    []string

	Mail Mail

	Include  string
	TabooExt []string
}

func New() *Policy {
	return &Policy{
		CompressExt: DefaultCompressExt,
		DateFormat:  DefaultDateFormat,
		ShredCycles: DefaultShredCycles,
		Mail:        Mail{MailLast: true},
		TabooExt:    append([]string(nil), DefaultTabooExt...),
	}
}

// Clone returns a deep copy, no slice is shared with the receiver.
func (p *Policy) Clone() *Policy {
	c := *p

	c.PreRotate = copyLines(p.PreRotate)
	c.PostRotate = copyLines(p.PostRotate)
	c.FirstAction = copyLines(p.FirstAction)
	c.LastAction = copyLines(p.LastAction)
	c.TabooExt = copyLines(p.TabooExt)

	return &c
}

// HasPeriod reports whether any time based trigger is configured.
func (p *Policy) HasPeriod() bool {
	return p.Daily || p.Weekly || p.Monthly || p.Yearly
}

// IsTaboo reports whether a file with the given extension must not be
// included as a configuration file.
func (p *Policy) IsTaboo(ext string) bool {
	for _, t := range p.TabooExt {
		if ext == t {
			return true
		}
	}

	return false
}

func copyLines(lines []string) []string {
	if lines == nil {
		return nil
	}

	return append([]string(nil), lines...)
}
