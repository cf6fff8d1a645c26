// Package cli is a line-oriented command shell over a byte transport
// (USB CDC, UART or BLE). Output is split into channels that can be muted
// at runtime.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"nrfbsp-go/errcode"
	"nrfbsp-go/services/params"
	"nrfbsp-go/types"
)

// Transport carries CLI bytes.
type Transport interface {
	Transmit(p []byte) error
	Receive() (byte, error)
}

// Cmd is one command. Run gets the arguments after the command name.
type Cmd struct {
	Name string
	Args string
	Help string
	Run  func(c *CLI, args []string) error
}

type table struct {
	name string
	cmds []Cmd
}

// Channel selects a muted-able output stream.
type Channel int

const (
	WAR Channel = iota
	ERR
	APP
)

const term = "\r\n"

type channel struct {
	name string
	on   bool
}

type CLI struct {
	tr     Transport
	cfg    types.CLIConfig
	line   []byte
	tables []table
	chans  []channel
	params *params.Table
	reset  func()
	lines  uint32
}

// New builds a CLI with the built-in table. reset may be nil.
func New(cfg types.CLIConfig, tr Transport, pt *params.Table, reset func()) (*CLI, error) {
	if tr == nil || cfg.RXSize < 32 || cfg.TXSize < 32 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "cli.init"}
	}
	if reset == nil {
		reset = func() {}
	}
	c := &CLI{
		tr:     tr,
		cfg:    cfg,
		line:   make([]byte, 0, cfg.RXSize),
		params: pt,
		reset:  reset,
	}
	names := cfg.Channels
	if len(names) == 0 {
		names = []string{"WAR", "ERR", "APP"}
	}
	for _, n := range names {
		c.chans = append(c.chans, channel{name: n, on: true})
	}
	if err := c.RegisterTable("basic", builtins()); err != nil {
		return nil, err
	}
	return c, nil
}

// SetTransport moves the shell to another transport.
func (c *CLI) SetTransport(tr Transport) {
	if tr != nil {
		c.tr = tr
	}
}

// RegisterTable adds a named command table.
func (c *CLI) RegisterTable(name string, cmds []Cmd) error {
	if c.cfg.MaxTables > 0 && len(c.tables) >= c.cfg.MaxTables {
		return errcode.Full
	}
	if c.cfg.MaxCmds > 0 && len(cmds) > c.cfg.MaxCmds {
		return errcode.Full
	}
	for _, cmd := range cmds {
		if cmd.Name == "" || cmd.Run == nil {
			return errcode.InvalidParams
		}
	}
	c.tables = append(c.tables, table{name: name, cmds: cmds})
	return nil
}

func (c *CLI) find(name string) (Cmd, bool) {
	for _, t := range c.tables {
		for _, cmd := range t.cmds {
			if cmd.Name == name {
				return cmd, true
			}
		}
	}
	return Cmd{}, false
}

// Hndl consumes received bytes, echoes them and runs complete lines.
func (c *CLI) Hndl() {
	if c == nil {
		return
	}
	for {
		b, err := c.tr.Receive()
		if err != nil {
			return
		}
		c.feed(b)
	}
}

func (c *CLI) feed(b byte) {
	switch {
	case b == '\r' || b == '\n':
		if len(c.line) == 0 {
			return
		}
		c.write(term)
		line := string(c.line)
		c.line = c.line[:0]
		c.Exec(line)
	case b == 0x08 || b == 0x7F:
		if len(c.line) > 0 {
			c.line = c.line[:len(c.line)-1]
			c.write("\b \b")
		}
	case b >= 0x20 && b < 0x7F:
		if len(c.line) < c.cfg.RXSize {
			c.line = append(c.line, b)
			_ = c.tr.Transmit([]byte{b})
		}
	}
}

// Exec runs one command line.
func (c *CLI) Exec(line string) {
	c.lines++
	args, err := shlex.Split(line)
	if err != nil {
		c.Printf(ERR, "parse error: %v", err)
		return
	}
	if len(args) == 0 {
		return
	}
	cmd, ok := c.find(args[0])
	if !ok {
		c.Printf(ERR, "%s: %v", args[0], errcode.UnknownCommand)
		return
	}
	if err := cmd.Run(c, args[1:]); err != nil {
		c.Printf(ERR, "%s: %v", args[0], err)
	}
}

func (c *CLI) write(s string) {
	// Output is dropped while no terminal is attached.
	_ = c.tr.Transmit([]byte(s))
}

// writeLine writes body clipped so that it and the terminator fit in TXSize.
func (c *CLI) writeLine(body string) {
	if n := c.cfg.TXSize - len(term); len(body) > n {
		body = body[:n]
	}
	c.write(body + term)
}

// Print writes an unchannelled line.
func (c *CLI) Print(format string, args ...any) {
	if c == nil {
		return
	}
	c.writeLine(fmt.Sprintf(format, args...))
}

// Printf writes a line on ch prefixed with its name, unless ch is muted.
func (c *CLI) Printf(ch Channel, format string, args ...any) {
	if c == nil || int(ch) < 0 || int(ch) >= len(c.chans) || !c.chans[ch].on {
		return
	}
	c.writeLine("[" + c.chans[ch].name + "] " + fmt.Sprintf(format, args...))
}

// Enable mutes or unmutes a channel.
func (c *CLI) Enable(ch Channel, on bool) error {
	if int(ch) < 0 || int(ch) >= len(c.chans) {
		return errcode.InvalidParams
	}
	c.chans[ch].on = on
	return nil
}

func (c *CLI) Enabled(ch Channel) bool {
	return int(ch) >= 0 && int(ch) < len(c.chans) && c.chans[ch].on
}

// Lines counts executed command lines.
func (c *CLI) Lines() uint32 { return c.lines }

func (c *CLI) channelByName(s string) (Channel, bool) {
	for i, ch := range c.chans {
		if strings.EqualFold(ch.name, s) {
			return Channel(i), true
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(c.chans) {
		return Channel(n), true
	}
	return 0, false
}
