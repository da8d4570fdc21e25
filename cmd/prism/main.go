package main

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/prism-go/engine"
	"github.com/Carmen-Shannon/prism-go/engine/bvh"
	"github.com/Carmen-Shannon/prism-go/engine/config"
	"github.com/Carmen-Shannon/prism-go/engine/loader"
	"github.com/Carmen-Shannon/prism-go/engine/scene"
	"github.com/Carmen-Shannon/prism-go/engine/window"
	"github.com/Carmen-Shannon/prism-go/log"
	"github.com/urfave/cli"
)

// minLeafItems is the leaf cutoff for the acceleration structure build.
const minLeafItems = 2

var logger = log.New("prism")

func main() {
	app := cli.NewApp()
	app.Name = "prism"
	app.Usage = "real-time GPU path tracer"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "res/config.toml",
			Usage: "path to the TOML scene description",
		},
		cli.IntFlag{
			Name:  "width",
			Value: 800,
			Usage: "window width in pixels",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 600,
			Usage: "window height in pixels",
		},
		cli.IntFlag{
			Name:  "frame-limit",
			Usage: "frame rate cap (0 = use config value, uncapped by default)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log level (debug, info, notice, warning, error)",
		},
		cli.BoolFlag{
			Name:  "software",
			Usage: "force the CPU fallback adapter instead of the GPU",
		},
		cli.BoolFlag{
			Name:  "profile",
			Usage: "log FPS, heap and GC statistics once per second",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx *cli.Context) error {
	log.SetLevel(log.ParseLevel(ctx.String("log-level")))

	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load scene config: %w", err)
	}
	if ctx.IsSet("frame-limit") {
		cfg.FrameLimit = ctx.Int("frame-limit")
	}

	scn, err := scene.Assemble(loader.NewLoader(), sceneInput(cfg))
	if err != nil {
		return fmt.Errorf("failed to assemble scene: %w", err)
	}
	logger.Infof("scene assembled: %d triangles, %d spheres, %d materials, %d atlas layers",
		len(scn.Triangles), len(scn.Spheres), len(scn.Materials), scn.Atlas.Layers)

	tree, err := bvh.Build(scn.Primitives(), minLeafItems)
	if err != nil {
		return fmt.Errorf("failed to build acceleration structure: %w", err)
	}
	logger.Infof("acceleration structure built: %d nodes over %d primitives",
		len(tree.Nodes), len(tree.PrimIndices))

	win := window.NewWindow(
		window.WithTitle("prism"),
		window.WithWidth(ctx.Int("width")),
		window.WithHeight(ctx.Int("height")),
	)

	eng, err := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithConfig(cfg),
		engine.WithScene(scn),
		engine.WithTree(tree),
		engine.WithForceSoftwareRenderer(ctx.Bool("software")),
		engine.WithProfiling(ctx.Bool("profile")),
		engine.WithOverlay(func(stats engine.FrameStats) {
			logger.Debugf("frame %.2fms, %.1f fps (avg %.1f)",
				float64(stats.FrameTime.Microseconds())/1000.0, stats.FPS, stats.AverageFPS)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Release()

	eng.Run()
	return win.Close()
}

// sceneInput maps the resolved config onto the scene assembler's input.
func sceneInput(cfg *config.Config) *scene.Input {
	in := &scene.Input{
		Materials:     cfg.Materials,
		Spheres:       cfg.Spheres,
		Background:    scene.DefaultBackground(),
		GltfPath:      cfg.Models.GltfPath,
		ObjPath:       cfg.Models.ObjPath,
		ObjMaterialID: cfg.Models.ObjMaterialID,
	}
	for _, set := range cfg.Textures {
		in.TextureSets = append(in.TextureSets, scene.TextureSet{
			Diffuse:   set.Diffuse,
			Normal:    set.Normal,
			Roughness: set.Roughness,
		})
	}
	if cfg.Background != nil {
		in.Background = cfg.Background.Record
		in.EnvironmentPath = cfg.Background.Path
	}
	return in
}
