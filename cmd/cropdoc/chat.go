package main

import (
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/cropdoc/internal/advisory"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the chatbot about a crop disease",
		Example: `  cropdoc chat "my rice has brown spot"
  cropdoc chat leaf blast`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatbot, err := advisory.NewChatbot()
			if err != nil {
				return err
			}
			reply := chatbot.Reply(strings.Join(args, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.New(color.FgGreen, color.OpBold).Render("Bot:"), reply)
			return nil
		},
	}
}
