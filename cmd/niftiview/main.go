package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"niftiview/pkg/config"
	"niftiview/pkg/logging"
	"niftiview/pkg/nifti"
	"niftiview/pkg/slicer"
	"niftiview/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "NIfTI-1 volume (.nii, .nii.gz or .hdr)")
	configPath := flag.String("config", "niftiview.yaml", "YAML configuration file")
	outputDir := flag.String("output", "", "Directory to save rendered slices (overrides config)")
	sagittal := flag.Int("x", config.CenterIndex, "Sagittal slice index (-1 for centre)")
	coronal := flag.Int("y", config.CenterIndex, "Coronal slice index (-1 for centre)")
	axial := flag.Int("z", config.CenterIndex, "Axial slice index (-1 for centre)")
	frame := flag.Int("frame", 0, "Volume index for 4D images")
	format := flag.String("format", "", "Output image format: png or jpeg (overrides config)")
	extractSlices := flag.Bool("extract-slices", false, "Save every slice along all axes")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command line flags override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.Output.Dir = *outputDir
		case "x":
			cfg.View.SagittalIndex = *sagittal
		case "y":
			cfg.View.CoronalIndex = *coronal
		case "z":
			cfg.View.AxialIndex = *axial
		case "frame":
			cfg.View.Frame = *frame
		case "format":
			cfg.Output.Format = *format
		case "verbose":
			cfg.Output.Verbose = *verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	cfg.Logging.SetLogger()
	defer logging.Shutdown()
	if cfg.Output.Verbose {
		logging.SetLogMode(logging.DebugMode)
	}

	if err := run(cfg, *inputFile, *extractSlices); err != nil {
		logging.Errorf("%v", err)
		logging.Shutdown()
		os.Exit(1)
	}
}

func run(cfg *config.Config, inputFile string, extractSlices bool) error {
	startTime := time.Now()
	vol, hdr, err := nifti.Open(inputFile)
	if err != nil {
		return fmt.Errorf("failed to load NIfTI file: %w", err)
	}
	defer vol.Close()
	logging.Infof("Loaded %s in %s (%s)", inputFile, time.Since(startTime), hdr.Description())

	if cfg.View.Frame >= vol.Frames() {
		return fmt.Errorf("frame %d out of range, volume has %d", cfg.View.Frame, vol.Frames())
	}

	viewer := visualization.NewViewer(vol, cfg.View.Frame, cfg.Cache.SizeBytes)
	quad, err := viewer.Render(context.Background(), visualization.Indices{
		Axial:    cfg.View.AxialIndex,
		Sagittal: cfg.View.SagittalIndex,
		Coronal:  cfg.View.CoronalIndex,
	})
	if err != nil {
		return err
	}

	fmt.Println(quad.Info)

	ext, err := visualization.Extension(cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, axis := range slicer.Axes {
		buf := quad.Plane(axis)
		if buf == nil {
			fmt.Printf("%s plane skipped: %v\n", axis.Plane(), quad.Errors[axis])
			continue
		}
		path := filepath.Join(cfg.Output.Dir, axis.Plane()+ext)
		if err := visualization.SaveImage(visualization.ToImage(buf), path, cfg.Output.JPEGQuality); err != nil {
			logging.Warningf("Failed to save %s plane: %v", axis.Plane(), err)
			continue
		}
		fmt.Printf("Saved %s plane (%dx%d) to: %s\n", axis.Plane(), buf.Width, buf.Height, path)
	}

	if cfg.Output.SaveQuad {
		path := filepath.Join(cfg.Output.Dir, "quad"+ext)
		if err := visualization.SaveImage(visualization.Compose(quad), path, cfg.Output.JPEGQuality); err != nil {
			logging.Warningf("Failed to save quad view: %v", err)
		} else {
			fmt.Printf("Saved quad view to: %s\n", path)
		}
	}

	infoPath := filepath.Join(cfg.Output.Dir, "info.txt")
	if err := os.WriteFile(infoPath, []byte(quad.Info), 0644); err != nil {
		logging.Warningf("Failed to save info panel: %v", err)
	}

	// Extract and save slices if requested
	if extractSlices {
		fmt.Println("\nExtracting slices along all axes...")
		for _, axis := range []slicer.Axis{slicer.X, slicer.Y, slicer.Z} {
			axisDir := filepath.Join(cfg.Output.Dir, "slices", axis.String())
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir, cfg.Output.Format, cfg.Output.JPEGQuality); err != nil {
				logging.Warningf("Failed to save %s-axis slices: %v", axis, err)
			}
		}
		fmt.Println("Slice extraction completed!")
	}

	logging.Debugf("Cache hits: %d", viewer.CacheHits())
	return nil
}
