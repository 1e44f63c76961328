package main

import (
	"fmt"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bindStyle registers the presentation flags shared by every plot command.
func bindStyle(fs *pflag.FlagSet, s *domain.Style) {
	fs.Float64Var(&s.WidthIn, "width", 0, "figure width in inches (default 11)")
	fs.Float64Var(&s.HeightIn, "height", 0, "figure height in inches (default 8.5)")
	fs.IntVar(&s.DPI, "dpi", 0, "PNG resolution (default FIGURE_DPI)")
	fs.Float64Var(&s.TitleSize, "title-size", 0, "title font size in points")
	fs.Float64Var(&s.LabelSize, "label-size", 0, "label font size in points")
	fs.Float64Var(&s.BoundaryWidth, "boundary-width", 0, "override overlay line width in points")
	fs.StringVar(&s.BoundaryColor, "boundary-color", "", "override overlay color as #RRGGBB")
	fs.BoolVar(&s.ColorBar.Vertical, "colorbar-vertical", false, "draw the color bar on the right")
	fs.Float64Var(&s.ColorBar.Width, "colorbar-width", 0, "color bar thickness in points")
	fs.StringVar(&s.Signature, "signature", "", "text drawn in the lower right corner")
}

// bindMap registers the flags of the gridded map commands.
func bindMap(fs *pflag.FlagSet, req *domain.PlotRequest) {
	fs.StringVar(&req.Model, "model", "", "model name used in titles and paths (required)")
	fs.StringVar(&req.Region, "region", "CONUS", "region key or custom:west,east,south,north")
	fs.StringVar(&req.Reference, "reference", "States Only", "boundary reference system")
	fs.StringVar(&req.Parameter, "parameter", "", "parameter name used in titles and paths (required)")
	fs.StringVar(&req.Source, "source", "", "NetCDF file (required)")
	fs.StringVar(&req.Variable, "variable", "", "NetCDF variable (required)")
	fs.StringVar(&req.Conversion, "conversion", "", "unit conversion, e.g. k_to_f")
	fs.StringVar(&req.Scale, "scale", "", "color scale name")
	fs.StringVar(&req.Title, "title", "", "figure title")
	bindStyle(fs, &req.Style)
}

func newFieldCmd(a *app) *cobra.Command {
	req := domain.PlotRequest{Kind: domain.KindFieldMap}
	var step int
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Draw one map per time step of a gridded variable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if step >= 0 {
				req.TimeIndex = &step
			}
			return a.render(cmd, req)
		},
	}
	bindMap(cmd.Flags(), &req)
	cmd.Flags().IntVar(&step, "time-index", -1, "single time step to draw; negative draws every step")
	return cmd
}

func newEOFCmd(a *app) *cobra.Command {
	req := domain.PlotRequest{Kind: domain.KindEOF}
	cmd := &cobra.Command{
		Use:   "eof",
		Short: "Decompose an ensemble or time stack into EOF maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd, req)
		},
	}
	bindMap(cmd.Flags(), &req)
	cmd.Flags().IntVar(&req.Modes, "modes", 0, "number of modes to draw (default 3)")
	return cmd
}

func newSoundingCmd(a *app) *cobra.Command {
	req := domain.PlotRequest{Kind: domain.KindSounding}
	var at string
	cmd := &cobra.Command{
		Use:   "sounding",
		Short: "Draw a skew-T of an observed upper-air sounding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if at != "" {
				t, err := parseTimeFlag(at)
				if err != nil {
					return err
				}
				req.Time = t
			}
			return a.render(cmd, req)
		},
	}
	cmd.Flags().StringVar(&req.Station, "station", "", "WMO station number (required)")
	cmd.Flags().StringVar(&at, "time", "", "observation time, RFC 3339 or YYYYMMDDHH (default latest launch)")
	cmd.Flags().StringVar(&req.Source, "source", "", "read a saved TEXT:LIST page instead of fetching")
	cmd.Flags().StringVar(&req.Title, "title", "", "figure title")
	bindStyle(cmd.Flags(), &req.Style)
	return cmd
}

func newMeteogramCmd(a *app) *cobra.Command {
	req := domain.PlotRequest{Kind: domain.KindMeteogram}
	cmd := &cobra.Command{
		Use:   "meteogram",
		Short: "Draw the NWS hourly forecast for a point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd, req)
		},
	}
	cmd.Flags().Float64Var(&req.Lat, "lat", 0, "latitude in degrees (required)")
	cmd.Flags().Float64Var(&req.Lon, "lon", 0, "longitude in degrees (required)")
	cmd.Flags().StringVar(&req.Title, "title", "", "figure title")
	bindStyle(cmd.Flags(), &req.Style)
	return cmd
}

func (a *app) render(cmd *cobra.Command, req domain.PlotRequest) error {
	if req.ID == "" {
		req.ID = fmt.Sprintf("%s-%s", req.Kind, domain.Now().Format("20060102T150405"))
	}
	res, err := a.runner.Render(cmd.Context(), req)
	if err != nil {
		return err
	}
	for _, p := range res.Paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// parseTimeFlag accepts RFC 3339 or the compact YYYYMMDDHH used in sounding
// file names.
func parseTimeFlag(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006010215", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYYMMDDHH", s)
	}
	return t, nil
}
