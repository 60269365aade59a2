// coloringbook converts one image file into a coloring book page.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ds124wfegd/coloringbook/config"
	"github.com/ds124wfegd/coloringbook/internal/appServer"
	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/normalizer"
	"github.com/ds124wfegd/coloringbook/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func main() {
	if err := run(os.Args[1:]); err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "%s\n%v\n", entity.KindOf(err).UserMessage(), err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath string
		output     string
		theme      string
		rotate     int
		verbose    bool
	)

	flagSet := pflag.NewFlagSet("coloringbook", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "./config", "config directory or .yaml file")
	flagSet.StringVarP(&output, "output", "o", "", "output path (default: <input>_converted.jpg)")
	flagSet.Int("max-size", normalizer.DefaultMaxSize, "longest side of the image sent for generation")
	flagSet.StringVarP(&theme, "theme", "t", "", "theme keyword added to the prompt")
	flagSet.IntVarP(&rotate, "rotate", "r", 0, "rotate the input clockwise by this many degrees")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return &usageError{msg: err.Error()}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if flagSet.NArg() != 1 {
		return &usageError{msg: "expected exactly one image path"}
	}
	input := flagSet.Arg(0)

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)
	if verbose {
		logrus.SetLevel(logrus.InfoLevel)
	}

	viperInstance, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := viperInstance.BindPFlag("normalizer.max_size", flagSet.Lookup("max-size")); err != nil {
		return err
	}
	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if !normalizer.ValidateImageFormat(input) {
		logrus.WithField("path", input).Warn("unsupported extension, conversion may fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	converter := appServer.NewConverter(cfg, appServer.NewNormalizer(cfg))
	out, err := converter.Convert(ctx, service.ConvertRequest{
		ImagePath:  input,
		OutputPath: output,
		MaxSize:    cfg.Normalizer.MaxSize,
		Theme:      theme,
		Rotate:     rotate,
	})
	if err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `coloringbook converts a photo into a coloring book page.

The image is normalized, sent to the OpenAI images API together with the
coloring book instruction, and the result is saved as JPEG. The API key is
read from OPENAI_API_KEY (see openai.api_key_env).

Usage:
  coloringbook [flags] <image>

Flags:
%s`, flagSet.FlagUsages())
}
