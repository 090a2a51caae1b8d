package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/skosovsky/manifold"
)

var (
	errNoModel   = errors.New("no model: set \"model\" in the request or pass --model")
	errNotObject = errors.New("request must be a JSON object")
)

// request is the OpenAI-style body read from stdin.
type request struct {
	Model    string                 `json:"model"`
	Messages []manifold.ChatMessage `json:"messages"`
}

func newPipeCmd(f *rootFlags) *cobra.Command {
	var (
		model  string
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Answer a chat request read from stdin",
		Long: `Reads a JSON chat request ({"model": ..., "messages": [...], "max_tokens": ...})
from stdin and writes the answer to stdout. Failures are printed as "Error: ..." text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			var req request
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			var body map[string]any
			if err := json.Unmarshal(data, &body); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			if body == nil {
				return errNotObject
			}
			if model != "" {
				req.Model = model
			}
			if req.Model == "" {
				return errNoModel
			}
			if cmd.Flags().Changed("stream") {
				body["stream"] = stream
			}

			p, _, err := f.setup(cmd)
			if err != nil {
				return err
			}
			res := p.Pipe(cmd.Context(), lastUserText(req.Messages), req.Model, req.Messages, body)
			defer func() { _ = res.Close() }()
			out := cmd.OutOrStdout()
			for frag := range res.Fragments() {
				if _, err := io.WriteString(out, frag); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Model id, overrides the request")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream the answer, overrides the request")
	return cmd
}

func lastUserText(msgs []manifold.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == manifold.RoleUser && msgs[i].Content != nil {
			return msgs[i].Content.Text()
		}
	}
	return ""
}
