package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bigbrett/wolfHSM/whsm"
	"github.com/bigbrett/wolfHSM/whsm/cryptocb"
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func InitCryptoCommands(rootCmd *cobra.Command) {
	rngCmd := &cobra.Command{
		Use:   "rng",
		Short: "Fetch random bytes from the module",
		RunE:  rngCmd,
	}
	rngCmd.Flags().Int("size", 32, "number of bytes")
	rootCmd.AddCommand(rngCmd)

	cbcCmd := &cobra.Command{
		Use:   "aes-cbc",
		Short: "AES-CBC encrypt or decrypt a file on the module",
		RunE:  aesCbcCmd,
	}
	cbcCmd.Flags().String("input-file", "", "input file, a multiple of 16 bytes")
	cbcCmd.Flags().String("output-file", "", "output file")
	cbcCmd.Flags().String("key-hex", "", "AES key in hex; sent with the request")
	cbcCmd.Flags().String("key-id", "", "module key id to use instead of --key-hex")
	cbcCmd.Flags().String("iv-hex", "", "16 byte IV in hex, zero if empty")
	cbcCmd.Flags().Bool("decrypt", false, "decrypt instead of encrypt")
	_ = cbcCmd.MarkFlagRequired("input-file")
	_ = cbcCmd.MarkFlagRequired("output-file")
	rootCmd.AddCommand(cbcCmd)
}

func rngCmd(cmd *cobra.Command, _ []string) error {
	size, _ := cmd.Flags().GetInt("size")
	if size <= 0 {
		return fmt.Errorf("size must be positive")
	}
	return withClient(cmd, func(c *whsm.Client) error {
		out := make([]byte, size)
		if err := c.Invoke(&cryptocb.Info{AlgoType: protocol.AlgoRng, Rng: cryptocb.RngArgs{Out: out}}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(out))
		return nil
	})
}

func aesCbcCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	inPath, _ := flags.GetString("input-file")
	outPath, _ := flags.GetString("output-file")
	keyHex, _ := flags.GetString("key-hex")
	keyIDStr, _ := flags.GetString("key-id")
	ivHex, _ := flags.GetString("iv-hex")
	decrypt, _ := flags.GetBool("decrypt")

	iv := make([]byte, protocol.AesBlockSize)
	if ivHex != "" {
		var err error
		if iv, err = hex.DecodeString(ivHex); err != nil {
			return fmt.Errorf("invalid iv-hex: %w", err)
		}
	}

	var a *cryptocb.Aes
	switch {
	case keyIDStr != "":
		id, err := keyid.Parse(keyIDStr)
		if err != nil {
			return err
		}
		if a, err = cryptocb.NewAesRemote(id, iv); err != nil {
			return err
		}
	case keyHex != "":
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return fmt.Errorf("invalid key-hex: %w", err)
		}
		if a, err = cryptocb.NewAes(key, iv); err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of --key-hex or --key-id is required")
	}

	in, err := os.ReadFile(filepath.Clean(inPath))
	if err != nil {
		return err
	}

	return withClient(cmd, func(c *whsm.Client) error {
		out := make([]byte, len(in))
		err := c.Invoke(&cryptocb.Info{
			AlgoType: protocol.AlgoCipher,
			Cipher: cryptocb.CipherInfo{
				Type:   protocol.CipherAesCbc,
				Enc:    !decrypt,
				AesCbc: cryptocb.AesCbcArgs{Aes: a, Out: out, In: in},
			},
		})
		if err != nil {
			return fmt.Errorf("aes-cbc: %w (code %d)", err, cryptocb.Code(err))
		}
		return os.WriteFile(outPath, out, 0600)
	})
}
