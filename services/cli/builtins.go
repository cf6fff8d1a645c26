package cli

import (
	"strconv"

	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
)

func builtins() []Cmd {
	return []Cmd{
		{Name: "help", Help: "List commands", Run: cmdHelp},
		{Name: "intro", Help: "Print project info", Run: cmdIntro},
		{Name: "reset", Help: "Reset the device", Run: cmdReset},
		{Name: "ch_info", Help: "List output channels", Run: cmdChInfo},
		{Name: "ch_en", Args: "<ch> <0|1>", Help: "Enable or mute a channel", Run: cmdChEn},
		{Name: "par_info", Help: "List parameters", Run: cmdParInfo},
		{Name: "par_get", Args: "<id|name>", Help: "Read a parameter", Run: cmdParGet},
		{Name: "par_set", Args: "<id|name> <value>", Help: "Write a parameter", Run: cmdParSet},
	}
}

func cmdHelp(c *CLI, _ []string) error {
	for _, t := range c.tables {
		c.Print("%s:", t.name)
		for _, cmd := range t.cmds {
			c.Print("  %-10s %-18s %s", cmd.Name, cmd.Args, cmd.Help)
		}
	}
	return nil
}

// Intro prints the banner.
func (c *CLI) Intro() {
	in := c.cfg.Intro
	c.Print("%s", in.Project)
	c.Print("SW: %s  HW: %s", in.SWVersion, in.HWVersion)
	if in.Info != "" {
		c.Print("%s", in.Info)
	}
}

func cmdIntro(c *CLI, _ []string) error {
	c.Intro()
	return nil
}

func cmdReset(c *CLI, _ []string) error {
	c.Print("resetting...")
	c.reset()
	return nil
}

func cmdChInfo(c *CLI, _ []string) error {
	for i, ch := range c.chans {
		state := "off"
		if ch.on {
			state = "on"
		}
		c.Print("%d %-4s %s", i, ch.name, state)
	}
	return nil
}

func cmdChEn(c *CLI, args []string) error {
	if len(args) != 2 {
		return errcode.InvalidParams
	}
	ch, ok := c.channelByName(args[0])
	if !ok {
		return errcode.InvalidParams
	}
	on, err := strconv.ParseBool(args[1])
	if err != nil {
		return errcode.InvalidParams
	}
	return c.Enable(ch, on)
}

func (c *CLI) paramDef(arg string) (types.ParamDef, error) {
	if c.params == nil {
		return types.ParamDef{}, errcode.NotInitialized
	}
	if d, ok := c.params.ByName(arg); ok {
		return d, nil
	}
	id, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		return types.ParamDef{}, errcode.UnknownParam
	}
	return c.params.Def(uint16(id))
}

func fmtVal(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', 6, 32)
}

func cmdParInfo(c *CLI, _ []string) error {
	if c.params == nil {
		return errcode.NotInitialized
	}
	c.Print("%-4s %-8s %-8s %-6s %-6s %-4s %-4s %-3s %s", "id", "name", "val", "min", "max", "unit", "type", "acc", "desc")
	for _, d := range c.params.Table() {
		v, _ := c.params.Get(d.ID)
		c.Print("%-4d %-8s %-8s %-6s %-6s %-4s %-4s %-3s %s",
			d.ID, d.Name, fmtVal(v), fmtVal(d.Min), fmtVal(d.Max), d.Unit, d.Type, d.Access, d.Desc)
	}
	return nil
}

func cmdParGet(c *CLI, args []string) error {
	if len(args) != 1 {
		return errcode.InvalidParams
	}
	d, err := c.paramDef(args[0])
	if err != nil {
		return err
	}
	v, err := c.params.Get(d.ID)
	if err != nil {
		return err
	}
	c.Print("%s = %s %s", d.Name, fmtVal(v), d.Unit)
	return nil
}

func cmdParSet(c *CLI, args []string) error {
	if len(args) != 2 {
		return errcode.InvalidParams
	}
	d, err := c.paramDef(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return errcode.InvalidParams
	}
	if err := c.params.Set(d.ID, float32(v)); err != nil {
		return err
	}
	c.Print("%s = %s", d.Name, fmtVal(float32(v)))
	return nil
}
