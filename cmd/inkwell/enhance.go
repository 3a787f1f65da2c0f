package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/inkwell/internal/collab"
	"github.com/dgallion1/inkwell/internal/editor"
	"github.com/spf13/cobra"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [flags] file",
	Short: "Enhance a document through an inkwell server",
	Long:  `Enhance loads a document into an editor session, sends its text to the server's enhancement endpoint and prints the rewritten HTML`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEnhance,
}

var attachCmd = &cobra.Command{
	Use:   "attach [flags] image",
	Short: "Upload an image and print its URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttach,
}

func newClient(cmd *cobra.Command) *collab.Client {
	server, _ := cmd.Root().PersistentFlags().GetString("server")
	key, _ := cmd.Root().PersistentFlags().GetString("api-key")
	return collab.NewClient(server, key)
}

func runEnhance(cmd *cobra.Command, args []string) error {
	setupColor(cmd)
	limit, _ := cmd.Root().PersistentFlags().GetInt("limit")

	imp, err := loadFile(args[0], false)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	client := newClient(cmd)
	defer client.Close()

	errOut := cmd.ErrOrStderr()
	sess, err := editor.New(editor.Options{
		Document:  imp.Document,
		CharLimit: limit,
		Enhancer:  client,
		OnNotice:  func(n editor.Notice) { printNotice(errOut, n) },
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Enhance(cmd.Context()); err != nil {
		return fmt.Errorf("enhance %s: %w", args[0], err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), sess.HTML())
	printBudget(errOut, imp.Title, sess.Budget())
	return nil
}

func runAttach(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	client := newClient(cmd)
	defer client.Close()
	url, err := client.Upload(cmd.Context(), args[0], f)
	if err != nil {
		return fmt.Errorf("upload %s: %w", args[0], err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
