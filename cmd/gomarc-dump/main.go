package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trln/gomarc/pkg/marc"
)

var (
	rootCmd = &cobra.Command{
		Use:   "gomarc-dump [file]",
		Short: "Decode MARC records",
		Long:  "gomarc-dump decodes MARC binary or MARCXML records using the gomarc library and prints each record as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runDump(in)
		},
	}

	format     string
	encoding   string
	permissive bool
	retainRaw  bool
	limit      int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&format, "format", marc.FormatBinary, "source format: binary or xml")
	rootCmd.PersistentFlags().StringVar(&encoding, "encoding", "", "source encoding for binary records: best-guess, latin1, utf-8, or marc8")
	rootCmd.PersistentFlags().BoolVar(&permissive, "permissive", false, "correct bounded structural anomalies in binary records")
	rootCmd.PersistentFlags().BoolVar(&retainRaw, "retain-raw", false, "attach the pre-normalization representation to each record")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 0, "stop after this many records (0 means all)")
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func runDump(in io.Reader) error {
	reader, err := marc.NewReader(in, marc.Options{
		Format:     format,
		Encoding:   encoding,
		Permissive: permissive,
		RetainRaw:  retainRaw,
	})
	if err != nil {
		return err
	}
	count := 0
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if marc.IsStructural(err) {
				logrus.WithField("records", count).Error("decoding halted on malformed record")
			}
			return err
		}
		fmt.Println(rec.String())
		count++
		if limit > 0 && count >= limit {
			break
		}
	}
	logrus.WithField("records", count).Info("done")
	return nil
}
