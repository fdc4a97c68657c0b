package main

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hytous/RigidLabeler/internal/transform"
	"github.com/hytous/RigidLabeler/pkg/geometry"
)

// selfcheckCase is a known transform that the estimator must recover.
type selfcheckCase struct {
	mode   transform.Mode
	params transform.Params
}

var selfcheckCases = []selfcheckCase{
	{transform.Rigid, transform.UniformParams(30, 40, -25, 1)},
	{transform.Similarity, transform.UniformParams(-75, -12, 8, 1.6)},
	{transform.Affine, transform.Params{ThetaDeg: 12, TX: 5, TY: 9, ScaleX: 1.3, ScaleY: 0.8, Shear: 0.15}},
}

func newSelfcheckCmd() *cobra.Command {
	var (
		points int
		noise  float64
		seed   int64
		tol    float64
	)

	cmd := &cobra.Command{
		Use:   "selfcheck",
		Short: "Estimate known transforms from synthetic tie points",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := rand.New(rand.NewSource(seed))
			return runSelfcheck(cmd.OutOrStdout(), rng, points, noise, tol)
		},
	}

	cmd.Flags().IntVarP(&points, "points", "n", 12, "tie points per case")
	cmd.Flags().Float64Var(&noise, "noise", 0, "uniform pixel noise added to fixed points")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for the noise")
	cmd.Flags().Float64Var(&tol, "tol", 1e-6, "largest accepted RMS error in pixels")
	return cmd
}

func runSelfcheck(w io.Writer, rng *rand.Rand, n int, noise, tol float64) error {
	moving := geometry.GenerateCirclePoints(320, 240, 200, n)

	failed := 0
	for _, c := range selfcheckCases {
		fixed := transform.Apply(transform.ParamsToMatrix(c.params), moving)
		for i := range fixed {
			jitter := geometry.NewPoint2D(rng.Float64()*2-1, rng.Float64()*2-1).Scale(noise)
			fixed[i] = fixed[i].Add(jitter)
		}

		result, err := transform.Estimate(c.mode, fixed, moving)
		if err != nil {
			return errors.Wrapf(err, "%s case", c.mode)
		}
		printResult(w, result)

		// Least-squares fits with a free translation map centroid onto centroid.
		drift := geometry.Centroid(fixed).Distance(result.Matrix.Apply(geometry.Centroid(moving)))
		fmt.Fprintf(w, "  centroid drift: %.2e px\n", drift)

		status := "ok"
		if result.RMSError > tol {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(w, "  expected theta=%.4f tx=%.3f ty=%.3f: %s\n\n",
			c.params.ThetaDeg, c.params.TX, c.params.TY, status)
	}

	if failed > 0 {
		return errors.Errorf("%d of %d cases exceeded RMS tolerance %g", failed, len(selfcheckCases), tol)
	}
	return nil
}
