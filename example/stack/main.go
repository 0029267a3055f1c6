package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/akmonengine/feather2d"
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const dt float64 = 1.0 / 60.0

// setupScene builds a ground plane, a pyramid of boxes, a few balls and a hanging chain
func setupScene(world *feather2d.World) ([]*actor.RigidBody, error) {
	var tracked []*actor.RigidBody

	ground := feather2d.DefaultBodyDef()
	ground.Type = actor.BodyTypeStatic
	ground.Shape = &actor.Plane{Normal: mgl64.Vec2{0, 1}}
	ground.Material.Density = 0
	if _, err := world.CreateBody(ground); err != nil {
		return nil, err
	}

	// Box pyramid
	const rows = 5
	for row := 0; row < rows; row++ {
		for i := 0; i < rows-row; i++ {
			def := feather2d.DefaultBodyDef()
			def.Shape = &actor.Box{HalfExtents: mgl64.Vec2{0.5, 0.5}}
			def.Position = mgl64.Vec2{float64(i) + 0.5*float64(row) - 0.5*rows, 0.5 + float64(row)}
			id, err := world.CreateBody(def)
			if err != nil {
				return nil, err
			}
			body, _ := world.Body(id)
			tracked = append(tracked, body)
		}
	}

	// Balls dropped next to the pyramid
	for i := 0; i < 3; i++ {
		def := feather2d.DefaultBodyDef()
		def.Shape = &actor.Circle{Radius: 0.4}
		def.Position = mgl64.Vec2{6 + 0.3*float64(i), 4 + 1.2*float64(i)}
		def.Material.Restitution = 0.5
		if _, err := world.CreateBody(def); err != nil {
			return nil, err
		}
	}

	// Chain of boxes hanging from a static anchor
	anchor := feather2d.DefaultBodyDef()
	anchor.Type = actor.BodyTypeStatic
	anchor.Shape = &actor.Box{HalfExtents: mgl64.Vec2{0.2, 0.2}}
	anchor.Position = mgl64.Vec2{-8, 10}
	anchorID, err := world.CreateBody(anchor)
	if err != nil {
		return nil, err
	}
	previous, _ := world.Body(anchorID)

	for i := 0; i < 6; i++ {
		def := feather2d.DefaultBodyDef()
		def.Shape = &actor.Box{HalfExtents: mgl64.Vec2{0.5, 0.1}}
		def.Position = mgl64.Vec2{-7.5 + float64(i), 10}
		id, err := world.CreateBody(def)
		if err != nil {
			return nil, err
		}
		link, _ := world.Body(id)

		joint, err := constraint.NewRevoluteJoint(constraint.RevoluteJointDef{
			BodyA:  previous,
			BodyB:  link,
			Anchor: mgl64.Vec2{-8 + float64(i), 10},
		})
		if err != nil {
			return nil, err
		}
		if _, err := world.CreateJoint(joint); err != nil {
			return nil, err
		}
		previous = link
	}
	tracked = append(tracked, previous)

	return tracked, nil
}

func main() {
	configPath := flag.String("config", "", "YAML world configuration")
	watch := flag.Bool("watch", false, "reload the configuration when the file changes")
	steps := flag.Int("steps", 600, "number of steps to simulate")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	config := feather2d.DefaultConfig()
	if *configPath != "" {
		loaded, err := feather2d.LoadConfig(*configPath)
		if err != nil {
			logger.Error("cannot load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		config = loaded
	}

	world := feather2d.NewWorld(config)
	world.Logger = logger

	world.Events.Subscribe(feather2d.CONTACT_BEGIN, func(event feather2d.Event) {
		e := event.(feather2d.ContactBeginEvent)
		logger.Debug("contact begin", "a", e.BodyA.Transform.Position, "b", e.BodyB.Transform.Position)
	})
	world.Events.Subscribe(feather2d.ON_SLEEP, func(event feather2d.Event) {
		logger.Debug("body asleep", "position", event.(feather2d.SleepEvent).Body.Transform.Position)
	})

	tracked, err := setupScene(world)
	if err != nil {
		logger.Error("cannot build scene", "error", err)
		os.Exit(1)
	}

	var watcher *feather2d.ConfigWatcher
	if *watch && *configPath != "" {
		watcher, err = feather2d.WatchConfig(*configPath)
		if err != nil {
			logger.Error("cannot watch config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		defer watcher.Close()
	}

	for step := 0; step < *steps; step++ {
		if watcher != nil {
			select {
			case reloaded := <-watcher.Configs:
				// The grid keeps its size until the world is rebuilt
				world.Config = reloaded
				logger.Info("config reloaded", "gravity", reloaded.Gravity, "workers", reloaded.Workers)
			case err := <-watcher.Errors:
				logger.Warn("config rejected", "error", err)
			default:
			}
		}

		world.Step(dt)

		if step%60 == 0 {
			awake := 0
			for _, body := range world.Bodies() {
				if !body.IsSleeping && !body.IsStatic() {
					awake++
				}
			}
			logger.Info("step",
				"step", step,
				"islands", len(world.Islands()),
				"contacts", world.ContactCount(),
				"awake", awake,
				"top", tracked[len(tracked)-2].Transform.Position,
				"chain_end", tracked[len(tracked)-1].Transform.Position,
			)
		}
	}
}
