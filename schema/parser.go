package schema

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/types"
)

var (
	typePattern   = regexp.MustCompile(`^type\s+(\S+)\s*=\s*(.+?)\s*$`)
	headerPattern = regexp.MustCompile(`^(\S+)\s*=\s*(\d+)\s*;\s*(.*?)\s*$`)
	fieldPattern  = regexp.MustCompile(`^(\S+(?:\(.*\))?)\s+([^;()]*?)\s*;\s*(.*?)\s*$`)
	namePattern   = regexp.MustCompile(`^(\w+)((?:\[[^\]]*\])*)$`)
	dimPattern    = regexp.MustCompile(`\[([^\]]*)\]`)
	capPattern    = regexp.MustCompile(`^(add-cap|remove-cap)\((.+)\)$`)
	resetPattern  = regexp.MustCompile(`^(reset|cancel)\((.+)\)$`)
)

// Source is one named schema input.
type Source struct {
	Name  string
	Lines []Line
}

// Parser builds a model.Definition from schema sources.
type Parser struct {
	cfg      model.Config
	log      *zap.Logger
	registry *types.Registry
}

func NewParser(cfg model.Config, log *zap.Logger) *Parser {
	return &Parser{
		cfg:      cfg,
		log:      log.Named("schema"),
		registry: types.NewRegistry(),
	}
}

// Registry returns the registry aliases are defined in.
func (p *Parser) Registry() *types.Registry {
	return p.registry
}

// ReadFiles reads the directive lines of every path.
func ReadFiles(paths ...string) ([]Source, error) {
	var sources []Source

	for _, path := range paths {
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("Failed to open schema: %w", openErr)
		}

		lines, readErr := ReadLines(path, f)
		if closeErr := f.Close(); readErr == nil {
			readErr = closeErr
		}

		if readErr != nil {
			return nil, readErr
		}

		sources = append(sources, Source{Name: path, Lines: lines})
	}

	return sources, nil
}

// ParseFiles reads and parses the given schema files in order.
func (p *Parser) ParseFiles(paths ...string) (*model.Definition, error) {
	sources, err := ReadFiles(paths...)
	if err != nil {
		return nil, err
	}

	return p.Parse(sources...)
}

// Parse builds the definition from sources in order. The first error aborts
// the whole pass.
func (p *Parser) Parse(sources ...Source) (*model.Definition, error) {
	def := model.NewDefinition(p.cfg, p.registry)

	// aliases first, from every file
	for _, src := range sources {
		for _, l := range src.Lines {
			m := typePattern.FindStringSubmatch(l.Text)
			if m == nil {
				continue
			}

			if err := p.defineAlias(m[1], m[2]); err != nil {
				return nil, lineErr(l, err)
			}
		}
	}

	for _, src := range sources {
		if err := p.parsePackets(def, src); err != nil {
			return nil, err
		}
	}

	if err := def.Finalize(); err != nil {
		return nil, err
	}

	p.log.Debug("Parsed schema",
		zap.Int("files", len(sources)),
		zap.Int("packets", def.Len()),
		zap.Int("aliases", len(def.Aliases())))

	return def, nil
}

func (p *Parser) defineAlias(alias, meaning string) error {
	if prev, ok := p.registry.Aliases()[alias]; ok && prev == meaning {
		p.log.Debug("Duplicate typedef", zap.String("alias", alias), zap.String("meaning", meaning))
		return nil
	}

	return p.registry.Define(alias, meaning)
}

type pendingPacket struct {
	header Line
	name   string
	number int
	flags  model.PacketFlags
	fields []*model.Field
}

func (p *Parser) parsePackets(def *model.Definition, src Source) error {
	var current *pendingPacket

	for _, l := range src.Lines {
		if typePattern.MatchString(l.Text) {
			continue
		}

		if l.Text == "end" {
			if current == nil {
				return lineErr(l, ErrStrayEnd)
			}

			if err := p.finishPacket(def, current); err != nil {
				return err
			}

			current = nil
			continue
		}

		if m := headerPattern.FindStringSubmatch(l.Text); m != nil {
			if current != nil {
				return lineErr(current.header, fmt.Errorf("%s: %w", current.name, ErrUnterminatedPacket))
			}

			pkt, err := p.parseHeader(l, m)
			if err != nil {
				return err
			}

			current = pkt
			continue
		}

		if current == nil {
			return lineErr(l, ErrMalformedLine)
		}

		fields, err := p.parseFields(l)
		if err != nil {
			return err
		}

		current.fields = append(current.fields, fields...)
	}

	if current != nil {
		return lineErr(current.header, fmt.Errorf("%s: %w", current.name, ErrUnterminatedPacket))
	}

	return nil
}

func (p *Parser) finishPacket(def *model.Definition, pkt *pendingPacket) error {
	packet, err := model.NewPacket(pkt.name, pkt.number, pkt.flags, pkt.fields)
	if err != nil {
		return lineErr(pkt.header, err)
	}

	if err := def.Add(packet); err != nil {
		return lineErr(pkt.header, err)
	}

	p.log.Debug("Parsed packet",
		zap.String("packet", packet.Type),
		zap.Uint16("number", packet.ID),
		zap.Int("fields", len(packet.Fields)),
		zap.Int("variants", len(packet.Variants)))

	return nil
}

func (p *Parser) parseHeader(l Line, m []string) (*pendingPacket, error) {
	number, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, lineErr(l, fmt.Errorf("%s: %w", m[2], model.ErrPacketNumber))
	}

	pkt := &pendingPacket{header: l, name: m[1], number: number}
	flags := &pkt.flags

	var unknown error
	for _, flag := range splitFlags(m[3]) {
		switch flag {
		case "sc":
			flags.ToClient = true
		case "cs":
			flags.ToServer = true
		case "is-info":
			flags.Info = model.InfoIs
		case "is-game-info":
			flags.Info = model.InfoGame
		case "pre-send":
			flags.PreSend = true
		case "post-send":
			flags.PostSend = true
		case "post-recv":
			flags.PostRecv = true
		case "no-delta":
			flags.NoDelta = true
		case "no-handle":
			flags.NoHandle = true
		case "handle-via-fields":
			flags.HandleViaFields = true
		case "handle-via-packet":
			flags.HandleViaFields = false
		case "handle-per-conn":
			flags.HandlePerConn = true
		case "dsend":
			flags.DSend = true
		case "lsend":
			flags.LSend = true
		case "force":
			flags.Force = true
		default:
			if r := resetPattern.FindStringSubmatch(flag); r != nil {
				flags.Resets = append(flags.Resets, strings.TrimSpace(r[2]))
				continue
			}

			unknown = multierr.Append(unknown, fmt.Errorf("%s: %w", flag, ErrUnknownFlag))
		}
	}

	if unknown != nil {
		return nil, lineErr(l, unknown)
	}

	return pkt, nil
}

func (p *Parser) parseFields(l Line) ([]*model.Field, error) {
	m := fieldPattern.FindStringSubmatch(l.Text)
	if m == nil {
		return nil, lineErr(l, ErrMalformedLine)
	}

	base, err := p.registry.Resolve(m[1])
	if err != nil {
		return nil, lineErr(l, err)
	}

	var (
		isKey, diff   bool
		adds, removes []string
		unknown       error
	)

	for _, flag := range splitFlags(m[3]) {
		switch flag {
		case "key":
			isKey = true
		case "diff":
			diff = true
		default:
			c := capPattern.FindStringSubmatch(flag)
			if c == nil {
				unknown = multierr.Append(unknown, fmt.Errorf("%s: %w", flag, ErrUnknownFlag))
				continue
			}

			if c[1] == "add-cap" {
				adds = append(adds, strings.TrimSpace(c[2]))
			} else {
				removes = append(removes, strings.TrimSpace(c[2]))
			}
		}
	}

	if unknown != nil {
		return nil, lineErr(l, unknown)
	}

	flags, err := model.NewFieldFlags(isKey, diff, adds, removes)
	if err != nil {
		return nil, lineErr(l, err)
	}

	var fields []*model.Field
	for _, raw := range strings.Split(m[2], ",") {
		raw = strings.TrimSpace(raw)

		nm := namePattern.FindStringSubmatch(raw)
		if nm == nil {
			return nil, lineErr(l, fmt.Errorf("%q: %w", raw, ErrMalformedName))
		}

		var dims []types.Dim
		for _, d := range dimPattern.FindAllStringSubmatch(nm[2], -1) {
			dim, err := types.ParseDim(d[1], p.cfg.Constants)
			if err != nil {
				return nil, lineErr(l, err)
			}

			dims = append(dims, dim)
		}

		t, err := types.Wrap(base, dims)
		if err != nil {
			return nil, lineErr(l, fmt.Errorf("%s: %w", nm[1], err))
		}

		fields = append(fields, &model.Field{Name: nm[1], Type: t, Flags: flags})
	}

	return fields, nil
}

func splitFlags(text string) []string {
	var out []string

	for _, flag := range strings.Split(text, ",") {
		if flag = strings.TrimSpace(flag); flag != "" {
			out = append(out, flag)
		}
	}

	return out
}

// ParseString parses a single in memory schema.
func (p *Parser) ParseString(name, text string) (*model.Definition, error) {
	lines, err := ReadLines(name, strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	return p.Parse(Source{Name: name, Lines: lines})
}
