package handlers

import (
	"strconv"
	"strings"

	"github.com/OCAP2/fieldforge/internal/util"
)

var subcommands = []string{"create", "remove", "list", "reload", "save", "modify", "toggle", "activate", "deactivate"}

// Complete suggests the next word for a partially typed command line.
// args[0] is the subcommand; the last element is the word being typed.
func Complete(args []string, fieldCount int) []string {
	out := []string{}
	switch len(args) {
	case 0:
		return append(out, subcommands...)
	case 1:
		return util.FilterPrefix(subcommands, args[0])
	}

	sub := strings.ToLower(args[0])
	typed := args[len(args)-1]
	isLinear := len(args) > 1 && strings.EqualFold(args[1], "linear")

	switch len(args) {
	case 2:
		switch sub {
		case "create":
			return util.FilterPrefix([]string{"radial", "linear", "vortex"}, typed)
		case "modify":
			return util.FilterPrefix([]string{"strength"}, typed)
		case "remove", "toggle", "activate", "deactivate":
			return util.FilterPrefix(indices(fieldCount), typed)
		}
	case 3:
		if sub == "create" {
			return append(out, "<strength>")
		}
		if sub == "modify" && strings.EqualFold(args[1], "strength") {
			return util.FilterPrefix(indices(fieldCount), typed)
		}
	case 4:
		if sub == "create" {
			return append(out, "<range>")
		}
		if sub == "modify" && strings.EqualFold(args[1], "strength") {
			return append(out, "<value>")
		}
	}

	if sub != "create" {
		return out
	}
	switch {
	case isLinear && len(args) >= 5 && len(args) <= 7:
		return append(out, [...]string{"<x>", "<y>", "<z>"}[len(args)-5])
	case isLinear && len(args) == 8, !isLinear && len(args) == 5:
		return append(out, "<duration>")
	}
	return out
}

func indices(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}
