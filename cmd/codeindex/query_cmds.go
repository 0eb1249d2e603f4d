package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeindex-dev/codeindex/internal/embedder"
	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/query"
	"github.com/codeindex-dev/codeindex/internal/store"
)

type storeOpener func() (store.Store, error)

func withEngine(open storeOpener, fn func(e *query.Engine) error) error {
	st, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(query.New(st, 256))
}

func newFindSymbolsCmd(open storeOpener) *cobra.Command {
	var language, inFile, kind string
	cmd := &cobra.Command{
		Use:   "find-symbols [name]",
		Short: "Find all symbols matching a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(open, func(e *query.Engine) error {
				symbols, err := e.FindSymbols(cmd.Context(), args[0], model.Language(language), inFile, model.SymbolKind(kind))
				if err != nil {
					return err
				}
				return printJSON(symbols)
			})
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language filter")
	cmd.Flags().StringVar(&inFile, "in-file", "", "file path substring filter")
	cmd.Flags().StringVar(&kind, "kind", "", "symbol kind filter")
	return cmd
}

func newDefinitionCmd(open storeOpener) *cobra.Command {
	var symbolID int64
	cmd := &cobra.Command{
		Use:   "definition",
		Short: "Resolve a symbol id to its defining file and span",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(open, func(e *query.Engine) error {
				loc, err := e.GetDefinition(cmd.Context(), symbolID)
				if err != nil {
					return err
				}
				return printJSON(loc)
			})
		},
	}
	cmd.Flags().Int64Var(&symbolID, "symbol-id", 0, "symbol id")
	return cmd
}

func newReferencesCmd(open storeOpener) *cobra.Command {
	var symbolID int64
	cmd := &cobra.Command{
		Use:   "references",
		Short: "List every reference site targeting a symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(open, func(e *query.Engine) error {
				refs, err := e.GetReferences(cmd.Context(), symbolID)
				if err != nil {
					return err
				}
				return printJSON(refs)
			})
		},
	}
	cmd.Flags().Int64Var(&symbolID, "symbol-id", 0, "symbol id")
	return cmd
}

func newCallChainCmd(open storeOpener) *cobra.Command {
	var symbolID int64
	var direction string
	var depth int
	cmd := &cobra.Command{
		Use:   "call-chain",
		Short: "Build a caller/callee tree rooted at a symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(open, func(e *query.Engine) error {
				chain, err := e.BuildCallChain(cmd.Context(), symbolID, model.Direction(direction), depth)
				if err != nil {
					return err
				}
				return printJSON(chain)
			})
		},
	}
	cmd.Flags().Int64Var(&symbolID, "symbol-id", 0, "root symbol id")
	cmd.Flags().StringVar(&direction, "direction", string(model.DirectionForward), "forward or backward")
	cmd.Flags().IntVar(&depth, "depth", 5, "max depth")
	return cmd
}

func newObjectPropertiesCmd(open storeOpener) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "object-properties [name]",
		Short: "Enumerate methods/properties/fields scoped under a class/interface/struct",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(open, func(e *query.Engine) error {
				props, err := e.GetObjectProperties(cmd.Context(), args[0], model.Language(language))
				if err != nil {
					return err
				}
				return printJSON(props)
			})
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language filter")
	return cmd
}

func newSemanticSearchCmd(open storeOpener, embedURL, embedModel *string) *cobra.Command {
	var topK int
	var language, kind string
	var minSimilarity float64
	cmd := &cobra.Command{
		Use:   "semantic-search [query]",
		Short: "Semantic code search by natural language query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(open, func(e *query.Engine) error {
				emb := embedder.New(embedder.Options{URL: *embedURL}, *embedModel)
				vecs, err := emb.EmbedTexts(cmd.Context(), []string{args[0]})
				if err != nil {
					return fmt.Errorf("embed query: %w", err)
				}
				if len(vecs) == 0 {
					return fmt.Errorf("embedder returned no vector")
				}
				hits, err := e.SemanticSearch(cmd.Context(), vecs[0], *embedModel, topK, model.Language(language), model.SymbolKind(kind), minSimilarity)
				if err != nil {
					return err
				}
				return printJSON(hits)
			})
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 5, "top K results")
	cmd.Flags().StringVar(&language, "language", "", "language filter")
	cmd.Flags().StringVar(&kind, "kind", "", "symbol kind filter")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "minimum similarity in [0,1]")
	return cmd
}
