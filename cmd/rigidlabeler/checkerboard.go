package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hytous/RigidLabeler/internal/imageio"
	"github.com/hytous/RigidLabeler/internal/labels"
	"github.com/hytous/RigidLabeler/internal/preview"
	"github.com/hytous/RigidLabeler/internal/transform"
)

func newCheckerboardCmd() *cobra.Command {
	var (
		req       preview.Request
		labelPath string
		matrixArg string
		outPath   string
		center    bool
		warpOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "checkerboard",
		Short: "Render a checkerboard of the fixed image and the warped moving image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if labelPath == "" && matrixArg == "" {
				return errors.New("one of --label and --matrix is required")
			}
			if labelPath != "" {
				label, err := labels.LoadPath(labelPath)
				if err != nil {
					return err
				}
				req.Matrix = label.Matrix
				if req.FixedPath == "" {
					req.FixedPath = label.ImageFixed
				}
				if req.MovingPath == "" {
					req.MovingPath = label.ImageMoving
				}
			}
			if matrixArg != "" {
				m, err := parseMatrix(matrixArg)
				if err != nil {
					return err
				}
				req.Matrix = m
			}
			if req.FixedPath == "" || req.MovingPath == "" {
				return errors.New("fixed and moving images are required")
			}
			if center {
				req.Origin = transform.OriginCenter
			}

			var err error
			if warpOnly {
				err = preview.NewGenerator("", req.BoardSize).WarpToFile(cmd.Context(), req, outPath)
			} else {
				err = renderCheckerboard(req, outPath)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.FixedPath, "fixed", "f", "", "fixed image (defaults to the label's)")
	cmd.Flags().StringVarP(&req.MovingPath, "moving", "b", "", "moving image (defaults to the label's)")
	cmd.Flags().StringVarP(&labelPath, "label", "l", "", "label JSON file providing the matrix")
	cmd.Flags().StringVar(&matrixArg, "matrix", "", "row-major matrix, 6 or 9 comma-separated values")
	cmd.Flags().StringVarP(&outPath, "out", "o", "checkerboard.png", "output PNG")
	cmd.Flags().IntVar(&req.BoardSize, "board", preview.DefaultBoardSize, "cells per side")
	cmd.Flags().BoolVar(&center, "center-origin", false, "matrix uses center-origin pixel coordinates")
	cmd.Flags().BoolVar(&warpOnly, "warp-only", false, "write the warped moving image instead of the checkerboard")
	return cmd
}

func renderCheckerboard(req preview.Request, outPath string) error {
	fixed, err := imageio.Load(req.FixedPath)
	if err != nil {
		return err
	}
	moving, err := imageio.Load(req.MovingPath)
	if err != nil {
		return err
	}

	warped, err := preview.Warp(moving, req.Matrix, imageio.SizeOf(fixed), req.Origin)
	if err != nil {
		return err
	}
	board, err := preview.Checkerboard(fixed, warped, req.BoardSize)
	if err != nil {
		return err
	}
	return imageio.SavePNG(outPath, board)
}
