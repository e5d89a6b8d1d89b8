package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/internal/dispatcher"
	"github.com/OCAP2/fieldforge/internal/engine"
	"github.com/OCAP2/fieldforge/internal/events"
	"github.com/OCAP2/fieldforge/internal/geo"
	"github.com/OCAP2/fieldforge/internal/world/memory"
	"github.com/OCAP2/fieldforge/pkg/core"
)

// Host commands. Arguments arrive pipe-separated after the command name.
const (
	CmdCreate     = ":FIELD:CREATE:"
	CmdRemove     = ":FIELD:REMOVE:"
	CmdModify     = ":FIELD:MODIFY:"
	CmdToggle     = ":FIELD:TOGGLE:"
	CmdActivate   = ":FIELD:ACTIVATE:"
	CmdDeactivate = ":FIELD:DEACTIVATE:"
	CmdList       = ":FIELD:LIST:"
	CmdReload     = ":FIELD:RELOAD:"
	CmdSave       = ":FIELD:SAVE:"
	CmdEvents     = ":FIELD:EVENTS:"
	CmdComplete   = ":FIELD:COMPLETE:"
	CmdStatus     = ":FIELD:STATUS:"

	CmdEntity       = ":WORLD:ENTITY:"
	CmdEntityRemove = ":WORLD:ENTITY:REMOVE:"
	CmdRegion       = ":WORLD:REGION:"
)

// ErrAdminRequired is returned for admin-only commands.
var ErrAdminRequired = errors.New("admin override required")

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Engine *engine.Service
	Events *events.Buffer
	Admins *AdminSet
	// World receives host entity snapshots; nil disables the world commands.
	World *memory.World
	// Reload re-reads configuration and applies it.
	Reload func() error
	Logger *slog.Logger
}

// Service translates host commands into engine operations.
type Service struct {
	deps Dependencies
	log  *slog.Logger
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Admins == nil {
		deps.Admins, _ = NewAdminSet(nil)
	}
	return &Service{deps: deps, log: deps.Logger}
}

// Register adds every command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdCreate, s.handle(s.Create), dispatcher.Logged())
	d.Register(CmdRemove, s.handle(s.Remove), dispatcher.Logged())
	d.Register(CmdModify, s.handle(s.Modify), dispatcher.Logged())
	d.Register(CmdToggle, s.handle(s.Toggle), dispatcher.Logged())
	d.Register(CmdActivate, s.handle(s.activate(true)), dispatcher.Logged())
	d.Register(CmdDeactivate, s.handle(s.activate(false)), dispatcher.Logged())
	d.Register(CmdList, s.handle(s.List))
	d.Register(CmdReload, s.handle(s.ReloadConfig), dispatcher.Logged())
	d.Register(CmdSave, s.handle(s.Save), dispatcher.Logged())
	d.Register(CmdEvents, s.handle(s.Events))
	d.Register(CmdComplete, s.handle(s.Complete))
	d.Register(CmdStatus, s.handle(func([]string) (any, error) { return s.deps.Engine.Status(), nil }))

	if s.deps.World != nil {
		d.Register(CmdEntity, s.handle(s.Entity), dispatcher.Buffered(10000))
		d.Register(CmdEntityRemove, s.handle(s.EntityRemove), dispatcher.Buffered(1000))
		d.Register(CmdRegion, s.handle(s.Region))
	}
}

func (s *Service) handle(fn func(args []string) (any, error)) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		args := clean(append([]string(nil), e.Args...))
		result, err := fn(args)
		if err != nil {
			s.log.Debug("command rejected", "command", e.Command, "error", err)
		}
		return result, err
	}
}

// CreateResult reports a created field.
type CreateResult struct {
	engine.Entry
	Message string `json:"message"`
}

// Create handles requester|world|x,y,z|kind|strength|range[|dx|dy|dz][|duration].
func (s *Service) Create(args []string) (any, error) {
	const format = "requester|world|x,y,z|kind|strength|range[|dx|dy|dz][|duration]"
	if len(args) < 6 {
		return nil, usage(format)
	}
	requester, err := parseRequester(args[0])
	if err != nil {
		return nil, err
	}
	loc, err := geo.ParseLocation(args[1], args[2])
	if err != nil {
		return nil, err
	}
	kind, err := core.ParseKind(args[3])
	if err != nil {
		return nil, err
	}
	strength, err := parseNumber("strength", args[4])
	if err != nil {
		return nil, err
	}
	rng, err := parseNumber("range", args[5])
	if err != nil {
		return nil, err
	}

	spec := core.Spec{Kind: kind, Location: loc, Strength: strength, Range: rng}
	rest := args[6:]
	if kind == core.KindLinear {
		if len(rest) < 3 {
			return nil, usage(format)
		}
		var d [3]float64
		for i := range d {
			if d[i], err = parseNumber("direction", rest[i]); err != nil {
				return nil, err
			}
		}
		spec.Direction = core.Vec3{X: d[0], Y: d[1], Z: d[2]}
		rest = rest[3:]
	}
	if len(rest) > 0 && rest[0] != "" {
		if spec.ExpiresAfter, err = ParseDuration(rest[0]); err != nil {
			return nil, err
		}
	}

	entry, err := s.deps.Engine.DoCreateField(spec, requester)
	if err != nil {
		return nil, err
	}
	name := kind.String()
	return CreateResult{
		Entry:   entry,
		Message: strings.ToUpper(name[:1]) + name[1:] + " field created.",
	}, nil
}

// Remove handles requester|index.
func (s *Service) Remove(args []string) (any, error) {
	requester, index, err := requesterAndIndex(args, "requester|index")
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Engine.DoRemoveField(index, requester); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Field at index %d removed.", index), nil
}

// Modify handles requester|strength|index|value.
func (s *Service) Modify(args []string) (any, error) {
	const format = "requester|strength|index|value"
	if len(args) < 4 || !strings.EqualFold(args[1], "strength") {
		return nil, usage(format)
	}
	requester, err := parseRequester(args[0])
	if err != nil {
		return nil, err
	}
	index, err := parseIndex(args[2])
	if err != nil {
		return nil, err
	}
	value, err := parseNumber("strength", args[3])
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Engine.DoModifyStrength(index, value, requester); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Field strength at index %d set to %s", index, strconv.FormatFloat(value, 'g', -1, 64)), nil
}

// Toggle flips the visuals of requester|index.
func (s *Service) Toggle(args []string) (any, error) {
	requester, index, err := requesterAndIndex(args, "requester|index")
	if err != nil {
		return nil, err
	}
	f, err := s.deps.Engine.DoToggleVisuals(index, requester)
	if err != nil {
		return nil, err
	}
	state := "off"
	if f.VisualsEnabled {
		state = "on"
	}
	return fmt.Sprintf("Visuals for field at index %d set to %s", index, state), nil
}

func (s *Service) activate(active bool) func([]string) (any, error) {
	return func(args []string) (any, error) {
		requester, index, err := requesterAndIndex(args, "requester|index")
		if err != nil {
			return nil, err
		}
		if _, err := s.deps.Engine.DoSetActive(index, active, requester); err != nil {
			return nil, err
		}
		state := "inactive"
		if active {
			state = "active"
		}
		return fmt.Sprintf("Field at index %d set to %s", index, state), nil
	}
}

// ListResult holds the requester's fields and, for admins, every field.
type ListResult struct {
	Own []engine.Entry `json:"own"`
	All []engine.Entry `json:"all,omitempty"`
}

// List handles requester. The system requester sees every field.
func (s *Service) List(args []string) (any, error) {
	var requester uuid.UUID
	if len(args) > 0 {
		var err error
		if requester, err = parseRequester(args[0]); err != nil {
			return nil, err
		}
	}

	res := ListResult{Own: []engine.Entry{}}
	if requester != uuid.Nil {
		if own := s.deps.Engine.Entries(requester); own != nil {
			res.Own = own
		}
	}
	if requester == uuid.Nil || s.deps.Admins.IsAdmin(requester) {
		res.All = s.deps.Engine.Entries(uuid.Nil)
		if res.All == nil {
			res.All = []engine.Entry{}
		}
	}
	return res, nil
}

// ReloadConfig handles requester; admin only.
func (s *Service) ReloadConfig(args []string) (any, error) {
	if err := s.requireAdmin(args); err != nil {
		return nil, err
	}
	if s.deps.Reload == nil {
		return nil, errors.New("reload not supported")
	}
	if err := s.deps.Reload(); err != nil {
		return nil, err
	}
	return "Configuration reloaded.", nil
}

// Save handles requester; admin only.
func (s *Service) Save(args []string) (any, error) {
	if err := s.requireAdmin(args); err != nil {
		return nil, err
	}
	n, err := s.deps.Engine.SaveAll()
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Saved %d fields.", n), nil
}

// Events drains up to [max] buffered enter/exit notifications.
func (s *Service) Events(args []string) (any, error) {
	if s.deps.Events == nil {
		return []core.FieldEvent{}, nil
	}
	max := 0
	if len(args) > 0 && args[0] != "" {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid max: %q", args[0])
		}
		max = n
	}
	out := s.deps.Events.Drain(max)
	if out == nil {
		out = []core.FieldEvent{}
	}
	return out, nil
}

// Complete returns suggestions for the partially typed words in args.
func (s *Service) Complete(args []string) (any, error) {
	return Complete(args, s.deps.Engine.FieldCount()), nil
}

// Entity handles id|world|x,y,z|alive.
func (s *Service) Entity(args []string) (any, error) {
	if len(args) < 4 {
		return nil, usage("id|world|x,y,z|alive")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid entity id %q: %w", args[0], err)
	}
	loc, err := geo.ParseLocation(args[1], args[2])
	if err != nil {
		return nil, err
	}
	alive, err := strconv.ParseBool(args[3])
	if err != nil {
		return nil, fmt.Errorf("invalid alive flag %q", args[3])
	}
	s.deps.World.Upsert(core.Entity{ID: id, Location: loc, Alive: alive})
	return nil, nil
}

// EntityRemove handles id.
func (s *Service) EntityRemove(args []string) (any, error) {
	if len(args) < 1 {
		return nil, usage("id")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid entity id %q: %w", args[0], err)
	}
	s.deps.World.Remove(id)
	return nil, nil
}

// Region handles world|loaded.
func (s *Service) Region(args []string) (any, error) {
	if len(args) < 2 || args[0] == "" {
		return nil, usage("world|loaded")
	}
	loaded, err := strconv.ParseBool(args[1])
	if err != nil {
		return nil, fmt.Errorf("invalid loaded flag %q", args[1])
	}
	s.deps.World.SetWorldLoaded(args[0], loaded)
	return nil, nil
}

func (s *Service) requireAdmin(args []string) error {
	var requester uuid.UUID
	if len(args) > 0 {
		var err error
		if requester, err = parseRequester(args[0]); err != nil {
			return err
		}
	}
	if requester != uuid.Nil && !s.deps.Admins.IsAdmin(requester) {
		return ErrAdminRequired
	}
	return nil
}

func requesterAndIndex(args []string, format string) (uuid.UUID, int, error) {
	if len(args) < 2 {
		return uuid.Nil, 0, usage(format)
	}
	requester, err := parseRequester(args[0])
	if err != nil {
		return uuid.Nil, 0, err
	}
	index, err := parseIndex(args[1])
	if err != nil {
		return uuid.Nil, 0, err
	}
	return requester, index, nil
}
