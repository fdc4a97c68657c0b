package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

func newConvertCmd() *cobra.Command {
	var (
		matrixArg  string
		fixedArg   string
		movingArg  string
		originName string
		target     string
		modeName   string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a matrix between pixel, normalized and origin conventions",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMatrix(matrixArg)
			if err != nil {
				return err
			}
			fixed, err := geometry.ParseSize(fixedArg)
			if err != nil {
				return errors.Wrap(err, "--fixed")
			}
			moving, err := geometry.ParseSize(movingArg)
			if err != nil {
				return errors.Wrap(err, "--moving")
			}
			origin, err := transform.ParseOrigin(originName)
			if err != nil {
				return err
			}
			mode, err := transform.ParseMode(modeName)
			if err != nil {
				return err
			}

			out, err := convertMatrix(m, fixed, moving, origin, target)
			if err != nil {
				return err
			}
			params, err := transform.MatrixToParams(out, mode)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printMatrix(w, out)
			printParams(w, params)
			return nil
		},
	}

	cmd.Flags().StringVar(&matrixArg, "matrix", "", "row-major matrix, 6 or 9 comma-separated values")
	cmd.Flags().StringVar(&fixedArg, "fixed", "", "fixed image size WxH")
	cmd.Flags().StringVar(&movingArg, "moving", "", "moving image size WxH")
	cmd.Flags().StringVar(&originName, "origin", "corner", "pixel origin of the input matrix: corner or center")
	cmd.Flags().StringVar(&target, "to", "normalized", "target: normalized, pixel, corner or center")
	cmd.Flags().StringVarP(&modeName, "mode", "m", "affine", "mode used to decompose the result")
	_ = cmd.MarkFlagRequired("matrix")
	_ = cmd.MarkFlagRequired("fixed")
	_ = cmd.MarkFlagRequired("moving")
	return cmd
}

func convertMatrix(m geometry.Matrix3, fixed, moving geometry.Size, origin transform.Origin, target string) (geometry.Matrix3, error) {
	switch strings.ToLower(target) {
	case "normalized":
		return transform.ToNormalized(m, fixed, moving, origin)
	case "pixel":
		return transform.ToPixel(m, fixed, moving, origin)
	case "corner", "center":
		to, _ := transform.ParseOrigin(target)
		return transform.Reorigin(m, fixed, moving, origin, to)
	}
	return geometry.Matrix3{}, errors.Errorf("unknown target %q, use normalized, pixel, corner or center", target)
}

// parseMatrix reads a row-major matrix from comma-separated values. Six
// values give the top two rows of an affine matrix.
func parseMatrix(s string) (geometry.Matrix3, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 6 && len(fields) != 9 {
		return geometry.Matrix3{}, errors.Errorf("matrix needs 6 or 9 values, got %d", len(fields))
	}

	v := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return geometry.Matrix3{}, errors.Wrapf(err, "matrix value %d", i)
		}
		v[i] = x
	}

	m := geometry.Affine(v[0], v[1], v[2], v[3], v[4], v[5])
	if len(v) == 9 {
		m[2] = [3]float64{v[6], v[7], v[8]}
		if !m.IsAffine() {
			return geometry.Matrix3{}, errors.New("matrix bottom row must be 0,0,1")
		}
	}
	return m, nil
}
