package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/hytous/RigidLabeler/internal/labels"
	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

func newEstimateCmd() *cobra.Command {
	var (
		modeName   string
		labelPath  string
		pointsPath string
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate a transform from the tie points of a label or points file",
		Long: `Estimate fits a rigid, similarity or affine transform that maps moving
points onto fixed points and prints its parameters, matrix and residuals.

A points file holds a JSON array of tie points:

  [{"fixed": {"x": 10, "y": 20}, "moving": {"x": 12, "y": 18}}, ...]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (labelPath == "") == (pointsPath == "") {
				return errors.New("exactly one of --label and --points is required")
			}

			var (
				tps  []labels.TiePoint
				mode = transform.Rigid
				err  error
			)
			if labelPath != "" {
				var label *labels.Label
				label, err = labels.LoadPath(labelPath)
				if err != nil {
					return err
				}
				tps, mode = label.TiePoints, label.Mode
			} else {
				tps, err = readTiePoints(pointsPath)
				if err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("mode") {
				if mode, err = transform.ParseMode(modeName); err != nil {
					return err
				}
			}

			fixed, moving := labels.Split(tps)
			result, err := transform.Estimate(mode, fixed, moving)
			if err != nil {
				return err
			}
			residuals, _, err := transform.Residuals(fixed, moving, result.Matrix)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printResult(out, result)
			printResiduals(out, fixed, residuals)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeName, "mode", "m", "rigid", "transform mode: rigid, similarity or affine")
	cmd.Flags().StringVarP(&labelPath, "label", "l", "", "label JSON file")
	cmd.Flags().StringVarP(&pointsPath, "points", "p", "", "tie points JSON file")
	return cmd
}

func readTiePoints(path string) ([]labels.TiePoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading tie points")
	}
	var tps []labels.TiePoint
	if err := json.Unmarshal(data, &tps); err != nil {
		return nil, errors.Wrapf(err, "parsing tie points %s", path)
	}
	return tps, nil
}

func printResult(w io.Writer, r transform.Result) {
	fmt.Fprintf(w, "=== %s transform (%d points) ===\n", r.Mode, r.NumPoints)
	printParams(w, r.Params)
	printMatrix(w, r.Matrix)
	fmt.Fprintf(w, "  RMS error: %.3f px\n", r.RMSError)
}

func printParams(w io.Writer, p transform.Params) {
	fmt.Fprintf(w, "  theta=%.4f deg  tx=%.3f  ty=%.3f\n", p.ThetaDeg, p.TX, p.TY)
	fmt.Fprintf(w, "  scale_x=%.6f  scale_y=%.6f  shear=%.6f\n", p.ScaleX, p.ScaleY, p.Shear)
}

func printMatrix(w io.Writer, m geometry.Matrix3) {
	fmt.Fprintf(w, "  M = %v\n", mat.Formatted(m.Dense(), mat.Prefix("      "), mat.Squeeze()))
}

func printResiduals(w io.Writer, fixed []geometry.Point2D, residuals []float64) {
	fmt.Fprintf(w, "  Per-point residuals:\n")
	for i, r := range residuals {
		fmt.Fprintf(w, "  X=%5.0f Y=%5.0f  err=%.1f px\n", fixed[i].X, fixed[i].Y, r)
	}
}
