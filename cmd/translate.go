package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/glossary"
	"github.com/MimeLyc/structured-doc-translator/internal/service"
	"github.com/MimeLyc/structured-doc-translator/pkg/file"
	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

var (
	translateTo        []string
	translateEngine    string
	translateBatchSize int
	translateFormat    string
	translateOutDir    string
	translateGlossary  string
)

var translateCmd = &cobra.Command{
	Use:   "translate <file>",
	Short: "Translate one file and write the result next to it",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranslate,
}

func init() {
	translateCmd.Flags().StringSliceVarP(&translateTo, "to", "t", nil, "target languages, e.g. de,fr (required)")
	translateCmd.Flags().StringVarP(&translateEngine, "engine", "e", "", "engine: deepl, gemini, openai or a model name")
	translateCmd.Flags().IntVarP(&translateBatchSize, "batch-size", "b", 0, "blocks per backend call (0: engine default)")
	translateCmd.Flags().StringVarP(&translateFormat, "format", "f", "", "input format (default: from extension)")
	translateCmd.Flags().StringVarP(&translateOutDir, "out", "o", "", "output directory (default: input directory)")
	translateCmd.Flags().StringVarP(&translateGlossary, "glossary", "g", "", "glossary JSON file applied to every target language")
	_ = translateCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	inputPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	cfg, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}

	var format document.Format
	if translateFormat != "" {
		if format, err = document.ParseFormat(translateFormat); err != nil {
			return err
		}
	}

	var terms glossary.Glossary
	if translateGlossary != "" {
		if terms, err = glossary.Load(translateGlossary); err != nil {
			return fmt.Errorf("load glossary: %w", err)
		}
	}

	outDir := translateOutDir
	if outDir == "" {
		outDir = filepath.Dir(inputPath)
	}

	out, reports, err := service.NewPipeline(*cfg).RunWithReport(cmd.Context(), service.Request{
		Content:         content,
		FileName:        filepath.Base(inputPath),
		Format:          format,
		TargetLanguages: translateTo,
		BatchSize:       translateBatchSize,
		Engine:          translateEngine,
		Glossary:        terms,
		GlossaryDir:     filepath.Dir(inputPath),
	})
	if err != nil {
		apperr.Log(err)
		return err
	}

	outPath := filepath.Join(outDir, out.FileName)
	if err := file.WriteAtomic(outPath, out.Body, 0o644); err != nil {
		return err
	}

	for _, r := range reports {
		log.Info("%s: %d blocks, %d batches, %d blocks missing", r.Language, r.Blocks, r.Batches, r.MissingBlocks)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", outPath, strings.Join(out.Files, ", "))
	return nil
}
