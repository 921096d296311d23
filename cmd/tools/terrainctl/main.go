package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/annel0/fractal-terrain/internal/auth"
	"github.com/annel0/fractal-terrain/internal/displace"
	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/fractal"
	"github.com/annel0/fractal-terrain/internal/render"
	"github.com/annel0/fractal-terrain/internal/util"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: terrainctl <render|token> [flags]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		engine   = fs.String("engine", render.EngineNoise, "displacement | noise | reference")
		size     = fs.Int("size", 0, "side length (0 = 513 for displacement, 200 otherwise)")
		seedFlag = fs.Int64("seed", -1, "seed (-1 = random)")
		out      = fs.String("out", "terrain.png", "output PNG path")
		workers  = fs.Int("workers", 0, "noise workers (0 = NumCPU)")
		timeout  = fs.Duration("timeout", time.Minute, "render timeout")

		roughness    = fs.Int("roughness", 10, "displacement: roughness")
		mountainSize = fs.Int("mountain", 10, "displacement: mountain size")
		contrast     = fs.Int("contrast", 100, "displacement: contrast")

		blends     = fs.Int("blends", 5, "noise: octave exponent")
		mode       = fs.String("mode", "linear", "noise: linear | cosine | cubic | gradient")
		maxBright  = fs.Int("max-bright", 100, "noise/reference: brightness divisor")
		freqReduc  = fs.Int("freq-reduc", 0, "noise: high frequency cutoff 0..5")
		preSmooth  = fs.Bool("pre-smooth", false, "noise: smooth lattice before sampling")
		postSmooth = fs.Bool("post-smooth", false, "smooth final field")

		kind        = fs.String("kind", "perlin", "reference: perlin | opensimplex")
		scale       = fs.Float64("scale", 32, "reference: feature size in pixels")
		octaves     = fs.Int("octaves", 4, "reference: octave count")
		persistence = fs.Float64("persistence", 0.5, "reference: amplitude falloff")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var seed *uint64
	if *seedFlag >= 0 {
		s := uint64(*seedFlag)
		seed = &s
	}
	if *size == 0 {
		*size = 200
		if *engine == render.EngineDisplacement {
			*size = 513
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	r := render.NewRenderer(*workers)
	var (
		img *field.Gray
		err error
	)
	switch *engine {
	case render.EngineDisplacement:
		img, err = r.Displacement(ctx, *size, displace.Settings{
			Roughness:    *roughness,
			MountainSize: *mountainSize,
			Contrast:     *contrast,
			PostSmooth:   *postSmooth,
		}, seed)
	case render.EngineNoise:
		m, perr := fractal.ParseMode(*mode)
		if perr != nil {
			return perr
		}
		img, err = r.Noise(ctx, *size, fractal.Settings{
			Blends:     *blends,
			Mode:       m,
			MaxBright:  *maxBright,
			FreqReduc:  *freqReduc,
			PreSmooth:  *preSmooth,
			PostSmooth: *postSmooth,
		}, seed)
	case render.EngineReference:
		img, err = r.Reference(ctx, *size, util.ReferenceSettings{
			Kind:        util.ReferenceKind(*kind),
			Scale:       *scale,
			Octaves:     *octaves,
			Persistence: *persistence,
			MaxBright:   *maxBright,
		}, seed)
	default:
		return fmt.Errorf("unknown engine %q", *engine)
	}
	if err != nil {
		var verr *field.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%s rejected: %w", *engine, verr)
		}
		return err
	}

	return writePNG(*out, img)
}

func writePNG(path string, g *field.Gray) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img := &image.Gray{Pix: g.Pix, Stride: g.Size, Rect: image.Rect(0, 0, g.Size, g.Size)}
	if err := png.Encode(f, img); err != nil {
		return err
	}
	fmt.Printf("✅ %s (%dx%d)\n", path, g.Size, g.Size)
	return f.Close()
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	var (
		secret  = fs.String("secret", os.Getenv("TERRAIN_JWT_SECRET"), "base64 secret (TERRAIN_JWT_SECRET)")
		issuer  = fs.String("issuer", "fractal-terrain", "token issuer")
		subject = fs.String("subject", "admin", "token subject")
		admin   = fs.Bool("admin", false, "grant admin rights")
		ttl     = fs.Duration("ttl", 24*time.Hour, "token lifetime")
		newKey  = fs.Bool("new-secret", false, "print a fresh secret and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *newKey {
		fmt.Println(auth.GenerateSecureSecret())
		return nil
	}
	if *secret == "" {
		return errors.New("secret is required (-secret or TERRAIN_JWT_SECRET)")
	}

	m, err := auth.NewManager(*secret, *issuer, *ttl)
	if err != nil {
		return err
	}
	token, err := m.Generate(*subject, *admin)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
