package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ruteri/secret-sharing-service/api"
	"github.com/ruteri/secret-sharing-service/api/clients"
	"github.com/ruteri/secret-sharing-service/cmd/flags"
	"github.com/urfave/cli/v2"
)

var flagServer = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "sharing server base URL",
	EnvVars: []string{"SHARING_SERVER"},
}

var flagK = &cli.IntFlag{Name: "k", Required: true, Usage: "threshold of shares needed to recover"}
var flagN = &cli.IntFlag{Name: "n", Required: true, Usage: "number of shares to produce"}

var flagSecret = &cli.StringFlag{
	Name:  "secret",
	Usage: "secret to split; read from stdin when empty",
}

var flagSharesFile = &cli.StringFlag{
	Name:  "shares",
	Usage: "JSON file with an array of shares; stdin when empty",
}

var flagSetID = &cli.StringFlag{Name: "id", Required: true, Usage: "share set ID returned by store"}

var flagIndex = &cli.IntFlag{Name: "index", Value: -1, Usage: "fetch only the share with this index"}

func main() {
	app := &cli.App{
		Name:  "sharing-client",
		Usage: "Split, recover and store secrets through a sharing server",
		Flags: append([]cli.Flag{flagServer}, flags.CommonFlags...),
		Commands: []*cli.Command{
			{
				Name:  "split",
				Usage: "split a secret and print the shares as JSON",
				Flags: []cli.Flag{flagK, flagN, flagSecret},
				Action: func(cCtx *cli.Context) error {
					secret := cCtx.String(flagSecret.Name)
					if secret == "" {
						data, err := io.ReadAll(os.Stdin)
						if err != nil {
							return err
						}
						secret = string(data)
					}

					shares, err := client(cCtx).SplitPOST(cCtx.Context, cCtx.Int(flagK.Name), cCtx.Int(flagN.Name), secret)
					if err != nil {
						return err
					}
					return printJSON(shares)
				},
			},
			{
				Name:  "recover",
				Usage: "recover a secret from a JSON array of shares",
				Flags: []cli.Flag{flagSharesFile},
				Action: func(cCtx *cli.Context) error {
					shares, err := readShares(cCtx.String(flagSharesFile.Name))
					if err != nil {
						return err
					}

					secret, err := client(cCtx).Recover(cCtx.Context, shares)
					var apiErr *clients.APIError
					if errors.As(err, &apiErr) && apiErr.Index != nil {
						flags.SetupLogger(cCtx).Error("Share failed verification", "index", *apiErr.Index)
					}
					if err != nil {
						return err
					}
					fmt.Print(secret)
					return nil
				},
			},
			{
				Name:  "store",
				Usage: "persist a JSON array of shares and print the set ID",
				Flags: []cli.Flag{flagSharesFile},
				Action: func(cCtx *cli.Context) error {
					shares, err := readShares(cCtx.String(flagSharesFile.Name))
					if err != nil {
						return err
					}

					id, err := client(cCtx).StoreShares(cCtx.Context, shares)
					if err != nil {
						return err
					}
					fmt.Println(id)
					return nil
				},
			},
			{
				Name:  "fetch",
				Usage: "print the shares of a stored set",
				Flags: []cli.Flag{flagSetID, flagIndex},
				Action: func(cCtx *cli.Context) error {
					c := client(cCtx)
					id := cCtx.String(flagSetID.Name)

					if index := cCtx.Int(flagIndex.Name); index >= 0 {
						share, err := c.FetchShare(cCtx.Context, id, index)
						if err != nil {
							return err
						}
						return printJSON(share)
					}

					shares, err := c.FetchShares(cCtx.Context, id)
					if err != nil {
						return err
					}
					return printJSON(shares)
				},
			},
			{
				Name:  "public-key",
				Usage: "print the PEM key shares are signed with",
				Action: func(cCtx *cli.Context) error {
					pemBytes, algorithm, err := client(cCtx).PublicKey(cCtx.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(os.Stderr, "signature algorithm: %s\n", algorithm)
					fmt.Print(string(pemBytes))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func client(cCtx *cli.Context) *clients.SharingClient {
	return clients.NewSharingClient(cCtx.String(flagServer.Name))
}

func readShares(path string) ([]api.ShareDTO, error) {
	var reader io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		reader = f
	}

	var shares []api.ShareDTO
	if err := json.NewDecoder(reader).Decode(&shares); err != nil {
		return nil, fmt.Errorf("could not parse shares: %w", err)
	}
	return shares, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
