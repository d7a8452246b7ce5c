package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SpindleAmber).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(SpindleCyan).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(SpindleOrange).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(SpindleAmber).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(SpindleCyan).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(SlateGray).
				Italic(true)
)

// StyledHelpPrinter creates a help printer with Lipgloss styling. It shows
// the command list at the top level and the arguments and flags of the
// selected command otherwise.
func StyledHelpPrinter(options kong.HelpOptions) kong.HelpPrinter {
	return kong.HelpPrinter(func(options kong.HelpOptions, ctx *kong.Context) error {
		fmt.Fprint(ctx.Stdout, renderHelp(ctx.Model.Node, ctx.Selected()))
		return nil
	})
}

func renderHelp(root, selected *kong.Node) string {
	node := root
	if selected != nil {
		node = selected
	}

	var sb strings.Builder
	sb.WriteString(helpTitleStyle.Render(appName))
	sb.WriteString("\n")
	desc := appTagline
	if node != root && node.Help != "" {
		desc = node.Help
	}
	sb.WriteString(helpDescStyle.Render(desc))
	sb.WriteString("\n")

	sb.WriteString(helpSectionStyle.Render("Usage:"))
	sb.WriteString("\n  ")
	sb.WriteString(usageLine(root, node))
	sb.WriteString("\n")

	if cmds := getCommands(node); len(cmds) > 0 {
		writeRows(&sb, "Commands:", cmds, helpArgStyle)
	}
	if args := getArguments(node); len(args) > 0 {
		writeRows(&sb, "Arguments:", args, helpArgStyle)
	}
	if flags := getFlags(node, root); len(flags) > 0 {
		writeRows(&sb, "Flags:", flags, helpFlagStyle)
	}

	sb.WriteString("\n")
	return sb.String()
}

func usageLine(root, node *kong.Node) string {
	if node == root {
		return fmt.Sprintf("%s <command> [flags]", root.Name)
	}
	parts := []string{root.Name, node.Name}
	for _, arg := range node.Positional {
		parts = append(parts, arg.Summary())
	}
	parts = append(parts, "[flags]")
	return strings.Join(parts, " ")
}

type helpRow struct {
	name       string
	help       string
	defaultVal string
}

func writeRows(sb *strings.Builder, title string, rows []helpRow, style lipgloss.Style) {
	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, r := range rows {
		sb.WriteString("  ")
		sb.WriteString(style.Render(r.name))
		if r.help != "" {
			sb.WriteString("  ")
			sb.WriteString(r.help)
		}
		if r.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + r.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func getCommands(node *kong.Node) []helpRow {
	var rows []helpRow
	for _, child := range node.Children {
		if child.Hidden || child.Type != kong.CommandNode {
			continue
		}
		name := child.Name
		for _, arg := range child.Positional {
			name += " " + arg.Summary()
		}
		rows = append(rows, helpRow{name: name, help: child.Help})
	}
	return rows
}

func getArguments(node *kong.Node) []helpRow {
	var rows []helpRow
	for _, arg := range node.Positional {
		rows = append(rows, helpRow{name: arg.Summary(), help: arg.Help})
	}
	return rows
}

func getFlags(node, root *kong.Node) []helpRow {
	rows := []helpRow{{
		name: "-h, --help",
		help: "Show context-sensitive help.",
	}}

	all := node.Flags
	if node != root {
		// Global flags apply to every command
		all = append(append([]*kong.Flag{}, root.Flags...), node.Flags...)
	}

	for _, f := range all {
		if f.Name == "help" || f.Hidden {
			continue
		}

		name := fmt.Sprintf("--%s", f.Name)
		if f.Short != 0 {
			name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		}
		if !f.IsBool() && f.PlaceHolder != "" {
			name += "=" + strings.ToUpper(f.PlaceHolder)
		}

		// Only show default if it's a meaningful value
		defaultVal := ""
		if f.HasDefault && !f.IsBool() && f.Default != "" && f.Default != "0" {
			defaultVal = f.Default
		}

		rows = append(rows, helpRow{name: name, help: f.Help, defaultVal: defaultVal})
	}
	return rows
}
