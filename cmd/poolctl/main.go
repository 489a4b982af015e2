package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/shielded-pool-go/pkg/config"
)

func main() {
	app := &cli.App{
		Name:  "poolctl",
		Usage: "Operate a fixed-denomination shielded commitment pool",
		Description: `An operator tool for a commitment pool backed by a sparse Merkle tree.

This tool can:
- Initialize a pool store and its tree
- Create notes and deposit their commitments
- Produce tree proofs and withdrawal witnesses for provers
- Verify Groth16 withdrawal proofs and record withdrawals`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML pool config; flags override its values",
				EnvVars: []string{config.EnvPoolConfigFile},
			},
			&cli.StringFlag{
				Name:    "denomination",
				Usage:   "Deposit amount in wei",
				EnvVars: []string{config.EnvPoolDenomination},
			},
			&cli.StringFlag{
				Name:    "hash-function",
				Usage:   "Field hash for commitments and tree nodes: poseidon or mimc",
				EnvVars: []string{config.EnvPoolHashFunction},
			},
			&cli.IntFlag{
				Name:    "tree-height",
				Usage:   "Tree height used by init",
				EnvVars: []string{config.EnvPoolTreeHeight},
			},
			&cli.StringFlag{
				Name:    "persistence",
				Usage:   fmt.Sprintf("Persistence backend: %s", config.GetSupportedPersistenceTypesString()),
				EnvVars: []string{config.EnvPoolPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvPoolDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis host:port",
				EnvVars: []string{config.EnvPoolRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvPoolRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvPoolRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvPoolRedisKeyPrefix},
			},
			&cli.StringFlag{
				Name:    "verifying-key",
				Usage:   "Path to the Groth16 verifying key used for withdrawals",
				EnvVars: []string{config.EnvPoolVerifyingKeyPath},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvPoolVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the pool tree in an empty store",
				Action: initCommand,
			},
			{
				Name:  "deposit",
				Usage: "Deposit a commitment, or a freshly generated note",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "commitment",
						Usage: "Commitment to deposit (0x-prefixed hex); a new note is generated when empty",
					},
					&cli.StringFlag{
						Name:  "value",
						Usage: "Deposit value in wei; defaults to the denomination",
					},
				},
				Action: depositCommand,
			},
			{
				Name:  "withdraw",
				Usage: "Verify a withdrawal proof and pay the recipient",
				Description: "Payouts go to an in-memory ledger that does not outlive the command. The\n" +
					"nullifier is persisted by the store, so the printed payout record is the only\n" +
					"copy of the transfer and should be kept by the caller.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "nullifier-hash",
						Usage:    "Nullifier hash (0x-prefixed hex)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "recipient",
						Usage:    "Recipient address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "root",
						Usage:    "Tree root the proof was made against",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "proof",
						Usage:    "Path to a JSON file with proof points {a, b, c}",
						Required: true,
					},
				},
				Action: withdrawCommand,
			},
			{
				Name:  "calldata",
				Usage: "ABI-encode a withdrawal proof for a Solidity verifier",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "nullifier-hash",
						Usage:    "Nullifier hash (0x-prefixed hex)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "recipient",
						Usage:    "Recipient address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "root",
						Usage:    "Tree root the proof was made against",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "proof",
						Usage:    "Path to a JSON file with proof points {a, b, c}",
						Required: true,
					},
				},
				Action: calldataCommand,
			},
			{
				Name:   "root",
				Usage:  "Print the current tree root",
				Action: rootCommand,
			},
			{
				Name:   "stats",
				Usage:  "Print pool accounting",
				Action: statsCommand,
			},
			{
				Name:  "proof",
				Usage: "Print the tree proof for a commitment",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "commitment",
						Usage:    "Commitment (0x-prefixed hex)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "root",
						Usage: "Historical root to prove against; defaults to the current root",
					},
				},
				Action: proofCommand,
			},
			{
				Name:  "note",
				Usage: "Create or inspect notes",
				Subcommands: []*cli.Command{
					{
						Name:   "new",
						Usage:  "Generate a note without depositing it",
						Action: noteNewCommand,
					},
					{
						Name:  "inspect",
						Usage: "Print the public values of a note",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "note",
								Usage:    "Encoded note",
								Required: true,
							},
						},
						Action: noteInspectCommand,
					},
				},
			},
			{
				Name:  "witness",
				Usage: "Build withdrawal circuit inputs for a deposited note",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "note",
						Usage:    "Encoded note",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "recipient",
						Usage:    "Recipient address bound into the proof",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "root",
						Usage: "Historical root to prove against; defaults to the current root",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output file for the witness JSON",
					},
				},
				Action: witnessCommand,
			},
			{
				Name:  "checkpoint",
				Usage: "Print a digest of the root history, or prove a root is in it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "root",
						Usage: "Root to prove membership of",
					},
				},
				Action: checkpointCommand,
			},
			{
				Name:   "health",
				Usage:  "Check that the store is reachable",
				Action: healthCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
