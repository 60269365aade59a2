package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/generator"
	"github.com/ds124wfegd/coloringbook/internal/pkg/normalizer"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAPIKeyEnv     = "OPENAI_API_KEY"
	DefaultOutputQuality = 80

	convertedSuffix = "_converted.jpg"
)

type ConverterConfig struct {
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv      string
	PromptTemplate string
	Model          string
	Size           string
	OutputQuality  int
}

type converter struct {
	cfg        ConverterConfig
	normalizer *normalizer.Normalizer
	generator  generator.Generator
}

func NewConverter(cfg ConverterConfig, n *normalizer.Normalizer, g generator.Generator) Converter {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.OutputQuality <= 0 || cfg.OutputQuality > 100 {
		cfg.OutputQuality = DefaultOutputQuality
	}
	return &converter{
		cfg:        cfg,
		normalizer: n,
		generator:  g,
	}
}

// DefaultOutputPath is the input path with its extension replaced by
// "_converted.jpg".
func DefaultOutputPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + convertedSuffix
}

func (c *converter) Convert(ctx context.Context, req ConvertRequest) (string, error) {
	apiKey := os.Getenv(c.cfg.APIKeyEnv)
	if apiKey == "" {
		return "", &entity.MissingCredentialError{Variable: c.cfg.APIKeyEnv}
	}

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = DefaultOutputPath(req.ImagePath)
	}
	prompt := BuildPrompt(c.cfg.PromptTemplate, req.Theme)

	log := logrus.WithFields(logrus.Fields{
		"input":  req.ImagePath,
		"output": outputPath,
		"theme":  req.Theme,
	})
	start := time.Now()

	var resp *generator.EditResponse
	err := c.normalizer.Prepare(ctx, req.ImagePath, normalizer.PrepareOptions{
		MaxSize: req.MaxSize,
		Rotate:  req.Rotate,
	}, func(r io.Reader) error {
		var err error
		resp, err = c.generator.Edit(ctx, &generator.EditRequest{
			APIKey:   apiKey,
			Image:    r,
			Filename: "image.jpg",
			Prompt:   prompt,
			Model:    c.cfg.Model,
			Size:     c.cfg.Size,
		})
		if err != nil {
			return &entity.GenerationError{Op: "edit", Cause: err}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("conversion failed")
		return "", err
	}

	if err := writeResult(resp, outputPath, c.cfg.OutputQuality); err != nil {
		log.WithError(err).Error("saving conversion result failed")
		return "", err
	}

	log.WithField("duration", time.Since(start)).Info("coloring book image saved")
	return outputPath, nil
}

// writeResult decodes the first payload of resp and stores it as JPEG.
func writeResult(resp *generator.EditResponse, path string, quality int) error {
	if resp == nil || len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return &entity.GenerationError{Op: "empty response"}
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return &entity.GenerationError{Op: "decode payload", Cause: err}
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return &entity.GenerationError{Op: "decode image", Cause: err}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := imaging.Encode(f, normalizer.Flatten(img), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode output: %w", err)
	}
	return f.Close()
}
