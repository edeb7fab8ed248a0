package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/astrokit/velmaps/internal/analysis"
	"github.com/astrokit/velmaps/internal/config"
	"github.com/astrokit/velmaps/internal/cosmo"
	"github.com/astrokit/velmaps/internal/export"
	"github.com/astrokit/velmaps/internal/halo"
	"github.com/astrokit/velmaps/internal/pafit"
	"github.com/astrokit/velmaps/internal/render"
	"github.com/astrokit/velmaps/internal/snapshot"
	"github.com/astrokit/velmaps/internal/storage"
	"github.com/astrokit/velmaps/internal/velmap"
	"github.com/astrokit/velmaps/internal/viz"
)

var (
	dataDir     string
	configFile  string
	preset      string
	verbose     bool
	redshift    float64
	widthKpc    float64
	pixelScale  float64
	fwhm        float64
	aperture    float64
	family      string
	orientation string
	cosmology   string
	cmapName    string
	vmin        float64
	vmax        float64
	scalebarKpc float64
	outPath     string
	withPA      bool
	upscale     int
	nbins       int
	format      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "velmaps",
		Short: "line-of-sight velocity maps from simulation snapshots",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".velmaps", "run data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	renderCmd := &cobra.Command{
		Use:   "render [snapshot]",
		Short: "build a velocity map and write it as PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderMap,
	}
	addObservationFlags(renderCmd)
	renderCmd.Flags().StringVar(&cmapName, "cmap", "", "colormap (PuOr, RdBu, suffix _r reverses)")
	renderCmd.Flags().Float64Var(&vmin, "vmin", 0, "lower velocity limit (km/s)")
	renderCmd.Flags().Float64Var(&vmax, "vmax", 0, "upper velocity limit (km/s)")
	renderCmd.Flags().Float64Var(&scalebarKpc, "scalebar", config.DefaultScalebarKpc, "scalebar length (kpc), 0 disables")
	renderCmd.Flags().StringVar(&outPath, "out", "", "output PNG path")
	renderCmd.Flags().BoolVar(&withPA, "pa", false, "overlay the fitted kinematic position angle")
	renderCmd.Flags().IntVar(&upscale, "upscale", 4, "integer pixel upscale")

	paCmd := &cobra.Command{
		Use:   "pa [snapshot]",
		Short: "fit the kinematic position angle",
		Args:  cobra.ExactArgs(1),
		RunE:  fitPA,
	}
	addObservationFlags(paCmd)

	profileCmd := &cobra.Command{
		Use:   "profile [snapshot]",
		Short: "radial rotation curve from the map",
		Args:  cobra.ExactArgs(1),
		RunE:  profileMap,
	}
	addObservationFlags(profileCmd)
	profileCmd.Flags().IntVar(&nbins, "bins", 20, "number of radial bins")

	viewCmd := &cobra.Command{
		Use:   "view [snapshot]",
		Short: "browse maps interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  viewMaps,
	}
	addObservationFlags(viewCmd)

	infoCmd := &cobra.Command{
		Use:   "info [snapshot]",
		Short: "print snapshot header and family summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showInfo,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available observation presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-12s  %.2f\"/px  fwhm %.1f\"  width %.0f kpc\n",
					name, cfg.PixelScaleArcsec, cfg.FWHMArcsec, cfg.ImageWidthKpc)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "csv", "output format: csv, json or svg")
	exportCmd.Flags().StringVar(&outPath, "out", "", "output path")
	exportCmd.Flags().StringVar(&cmapName, "cmap", "", "colormap for svg output")

	rootCmd.AddCommand(renderCmd, paCmd, profileCmd, viewCmd, infoCmd, presetsCmd, listCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addObservationFlags registers the flags shared by every command that
// builds a map from a snapshot.
func addObservationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "observation preset")
	cmd.Flags().Float64Var(&redshift, "redshift", config.DefaultRedshift, "mock observation redshift")
	cmd.Flags().Float64Var(&widthKpc, "width", config.DefaultWidthKpc, "image width (kpc)")
	cmd.Flags().Float64Var(&pixelScale, "pixel-scale", config.DefaultPixelScale, "pixel scale (arcsec)")
	cmd.Flags().Float64Var(&fwhm, "fwhm", config.DefaultFWHM, "PSF FWHM (arcsec), 0 disables")
	cmd.Flags().Float64Var(&aperture, "aperture", 0, "aperture radius (kpc), 0 derives from the stellar half-mass radius")
	cmd.Flags().StringVar(&family, "family", "star", "particle family (star, gas, dm, bh)")
	cmd.Flags().StringVar(&orientation, "orientation", "sideon", "halo orientation (sideon, faceon)")
	cmd.Flags().StringVar(&cosmology, "cosmology", "planck13", "cosmology (planck13, planck18)")
}

// resolveConfig merges defaults, preset, config file and flags, with
// later sources winning. Flags only override when explicitly set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("redshift") {
		cfg.Redshift = redshift
	}
	if cmd.Flags().Changed("width") {
		cfg.ImageWidthKpc = widthKpc
	}
	if cmd.Flags().Changed("pixel-scale") {
		cfg.PixelScaleArcsec = pixelScale
	}
	if cmd.Flags().Changed("fwhm") {
		cfg.FWHMArcsec = fwhm
	}
	if cmd.Flags().Changed("aperture") {
		cfg.ApertureKpc = aperture
	}
	if cmd.Flags().Changed("family") {
		cfg.Family = family
	}
	if cmd.Flags().Changed("orientation") {
		cfg.Orientation = orientation
	}
	if cmd.Flags().Changed("cosmology") {
		cfg.Cosmology = cosmology
	}
	if cmd != nil && cmd.Flags().Lookup("cmap") != nil && cmd.Flags().Changed("cmap") {
		cfg.Cmap = cmapName
	}

	return cfg, cfg.Validate()
}

// openAligned loads a snapshot, recenters it on the main halo and rotates
// it into the configured orientation.
func openAligned(path string, cfg *config.Config) (*snapshot.Snapshot, error) {
	snap, err := snapshot.Open(path)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", path).
		Float64("redshift", snap.Header.Redshift).
		Strs("families", snap.Families()).
		Msg("loaded snapshot")

	o, err := halo.ParseOrientation(cfg.Orientation)
	if err != nil {
		return nil, err
	}
	if err := halo.Align(snap, o); err != nil {
		return nil, err
	}
	return snap, nil
}

// buildMap runs the full pipeline for one family and returns the map plus
// the derived observation geometry.
func buildMap(snap *snapshot.Snapshot, cfg *config.Config, fam string) (*velmap.VelocityMap, error) {
	z := cfg.Redshift
	if z == 0 {
		// An angular scale needs a nonzero distance.
		z = config.DefaultRedshift
		log.Warn().Float64("redshift", z).Msg("redshift 0 requested, using survey default")
	}

	cos := cosmo.ByName(cfg.Cosmology)
	kpcPerArcsec := cos.KpcProperPerArcsec(z)

	apertureKpc := cfg.ApertureKpc
	if apertureKpc == 0 {
		stars := &snap.Star
		rHalf, err := halo.HalfMassRadius(stars, 2)
		if err != nil {
			return nil, fmt.Errorf("cannot derive aperture: %w", err)
		}
		apertureKpc = 1.5 * rHalf
		log.Info().
			Float64("r_half_kpc", rHalf).
			Float64("aperture_kpc", apertureKpc).
			Msg("aperture from stellar half-mass radius")
	}

	p, err := snap.Family(fam)
	if err != nil {
		return nil, err
	}

	return velmap.New(p, velmap.Params{
		ImageWidthKpc:    cfg.ImageWidthKpc,
		ApertureKpc:      apertureKpc,
		PixelScaleArcsec: cfg.PixelScaleArcsec,
		FWHMArcsec:       cfg.FWHMArcsec,
		KpcPerArcsec:     kpcPerArcsec,
	})
}

func renderMap(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := openAligned(args[0], cfg)
	if err != nil {
		return err
	}

	m, err := buildMap(snap, cfg, cfg.Family)
	if err != nil {
		return err
	}

	cmap, err := render.ColormapByName(cfg.DefaultCmap())
	if err != nil {
		return err
	}

	opts := render.Options{
		Cmap:        cmap,
		VMin:        cfg.VMin,
		VMax:        cfg.VMax,
		Scale:       upscale,
		ScalebarKpc: scalebarKpc,
		Colorbar:    true,
		Title:       cfg.Family,
	}
	if cmd.Flags().Changed("vmin") {
		opts.VMin = vmin
	}
	if cmd.Flags().Changed("vmax") {
		opts.VMax = vmax
	}
	for _, pos := range snap.BH.Pos {
		opts.BHPositions = append(opts.BHPositions, [2]float64{pos[0], pos[1]})
	}

	results := map[string]float64{}
	if withPA {
		fit, err := pafit.Fit(m)
		if err != nil {
			return err
		}
		opts.PAShow = true
		opts.PAAngle = fit.AngBest
		results["pa_deg"] = fit.AngBest
		results["pa_err_deg"] = fit.AngErr
		results["v_syst_km_s"] = fit.VSyst
		log.Info().
			Float64("pa_deg", fit.AngBest).
			Float64("err_deg", fit.AngErr).
			Msg("kinematic position angle")
	}

	out := outPath
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		out = fmt.Sprintf("%s_%s_%s.png", base, cfg.Family, cfg.Orientation)
	}
	if err := render.SavePNG(out, m, opts); err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Snapshot:         args[0],
		Family:           cfg.Family,
		Orientation:      cfg.Orientation,
		Redshift:         cfg.Redshift,
		ImageWidthKpc:    m.ImageWidthKpc,
		PixelScaleArcsec: m.PixelScaleArcsec,
		FWHMArcsec:       m.FWHMArcsec,
		ApertureKpc:      m.ApertureRadius,
		KpcPerArcsec:     m.KpcPerArcsec,
		Results:          results,
	}, m)
	if err != nil {
		return err
	}
	// Keep a copy of the figure with the run artifacts.
	if err := render.SavePNG(filepath.Join(dataDir, runID, "figure.png"), m, opts); err != nil {
		return err
	}

	stats := analysis.Summarize(m)
	fmt.Println(viz.Title(fmt.Sprintf("%s velocity map", cfg.Family)))
	fmt.Println(viz.Metric("output", out))
	fmt.Println(viz.Metric("run id", runID))
	fmt.Println(viz.Metric("grid", fmt.Sprintf("%dx%d px (%.2f kpc/px)", m.NPixels, m.NPixels, m.KpcPerPixel)))
	fmt.Println(viz.Metric("aperture", fmt.Sprintf("%.2f kpc", m.ApertureRadius)))
	fmt.Println(viz.Metric("velocities", fmt.Sprintf("%.0f to %.0f km/s", stats.VMin, stats.VMax)))
	return nil
}

func fitPA(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := openAligned(args[0], cfg)
	if err != nil {
		return err
	}
	m, err := buildMap(snap, cfg, cfg.Family)
	if err != nil {
		return err
	}

	fit, err := pafit.Fit(m)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title("kinematic position angle"))
	fmt.Println(viz.Metric("angle", fmt.Sprintf("%.1f deg", fit.AngBest)))
	fmt.Println(viz.Metric("error (3 sigma)", fmt.Sprintf("%.1f deg", fit.AngErr)))
	fmt.Println(viz.Metric("systemic velocity", fmt.Sprintf("%.1f km/s", fit.VSyst)))
	return nil
}

func profileMap(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := openAligned(args[0], cfg)
	if err != nil {
		return err
	}
	m, err := buildMap(snap, cfg, cfg.Family)
	if err != nil {
		return err
	}

	p := analysis.RotationCurve(m, nbins)
	graph := asciigraph.Plot(p.Filled(),
		asciigraph.Height(12),
		asciigraph.Width(72),
		asciigraph.Caption(fmt.Sprintf("mean |v_los| (km/s) vs radius, 0 to %.1f kpc", p.Radius[len(p.Radius)-1])),
	)
	fmt.Println(graph)
	return nil
}

func viewMaps(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := openAligned(args[0], cfg)
	if err != nil {
		return err
	}

	names := []string{}
	maps := map[string]*velmap.VelocityMap{}
	for _, fam := range snap.Families() {
		if fam == "bh" {
			continue
		}
		m, err := buildMap(snap, cfg, fam)
		if err != nil {
			log.Warn().Err(err).Str("family", fam).Msg("skipping family")
			continue
		}
		names = append(names, fam)
		maps[fam] = m
	}
	return viz.RunInteractive(names, maps)
}

func showInfo(cmd *cobra.Command, args []string) error {
	snap, err := snapshot.Open(args[0])
	if err != nil {
		return err
	}

	h := snap.Header
	fmt.Println(viz.Title(filepath.Base(args[0])))
	fmt.Println(viz.Metric("redshift", fmt.Sprintf("%.4f", h.Redshift)))
	fmt.Println(viz.Metric("scale factor", fmt.Sprintf("%.4f", h.Time)))
	fmt.Println(viz.Metric("box size", fmt.Sprintf("%.1f", h.BoxSize)))
	fmt.Println(viz.Metric("omega_m", fmt.Sprintf("%.4f", h.OmegaM)))
	fmt.Println(viz.Metric("h100", fmt.Sprintf("%.4f", h.H100)))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FAMILY\tPARTICLES\tTOTAL MASS (Msun)")
	for _, fam := range snap.Families() {
		p, err := snap.Family(fam)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%.3e\n", fam, p.Len(), p.TotalMass())
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFAMILY\tORIENT\tTIME\tWIDTH\tPXSCALE\tFWHM\tAPERTURE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%.2f\"\t%.1f\"\t%.1f\n",
			run.ID,
			run.Family,
			run.Orientation,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.ImageWidthKpc,
			run.PixelScaleArcsec,
			run.FWHMArcsec,
			run.ApertureKpc,
		)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	m, err := st.LoadMap(args[0])
	if err != nil {
		return err
	}

	out := outPath
	if out == "" {
		out = args[0] + "." + format
	}

	switch format {
	case "csv":
		err = export.WriteCSV(out, m)
	case "json":
		err = export.WriteJSON(out, m)
	case "svg":
		var cmap *render.Colormap
		if cmapName != "" {
			if cmap, err = render.ColormapByName(cmapName); err != nil {
				return err
			}
		}
		meta, merr := st.Load(args[0])
		if merr == nil {
			if pa, ok := meta.Results["pa_deg"]; ok {
				err = os.WriteFile(out, []byte(export.MapToSVGWithPA(m, cmap, 4, pa)), 0644)
				break
			}
		}
		err = export.WriteSVG(out, m, cmap, 4)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}
