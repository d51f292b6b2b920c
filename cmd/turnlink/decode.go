package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/spf13/cobra"
)

type decodedMessage struct {
	Kind        string          `json:"kind"`
	Reliability string          `json:"reliability"`
	SenderId    string          `json:"senderId"`
	Timestamp   int64           `json:"timestamp"`
	Sequence    uint16          `json:"sequence"`
	Payload     message.Payload `json:"payload"`
}

func decodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a hex-encoded wire message",
		Long: `Decode a single wire message, as captured from a transport, and print its
header and payload as JSON. Whitespace in the input is ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := decodeHex(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	return cmd
}

func decodeHex(input string) (string, error) {
	raw, err := hex.DecodeString(strings.Join(strings.Fields(input), ""))
	if err != nil {
		return "", fmt.Errorf("input is not valid hex: %w", err)
	}

	serializer, err := message.CreateMessageSerializer(message.MessageSerializerParams{})
	if err != nil {
		return "", err
	}
	msg, err := serializer.Parse(raw)
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(decodedMessage{
		Kind:        msg.Kind.String(),
		Reliability: msg.Reliability.String(),
		SenderId:    msg.SenderId,
		Timestamp:   msg.Timestamp,
		Sequence:    msg.Sequence,
		Payload:     msg.Payload,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
