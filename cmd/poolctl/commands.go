package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/shielded-pool-go/pkg/escrow"
	"github.com/Layr-Labs/shielded-pool-go/pkg/merkle"
	"github.com/Layr-Labs/shielded-pool-go/pkg/note"
	"github.com/Layr-Labs/shielded-pool-go/pkg/pool"
	"github.com/Layr-Labs/shielded-pool-go/pkg/smt"
	"github.com/Layr-Labs/shielded-pool-go/pkg/verifier"
	"github.com/Layr-Labs/shielded-pool-go/pkg/witness"
)

func initCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.pool.Init(c.Context, env.cfg.TreeHeight); err != nil {
		return fmt.Errorf("failed to initialize pool: %w", err)
	}

	fmt.Printf("✅ Pool initialized with height %d (%s)\n", env.cfg.TreeHeight, env.cfg.HashFunction)
	return nil
}

func depositCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	value := env.pool.Denomination()
	if raw := c.String("value"); raw != "" {
		if value, err = uint256.FromDecimal(raw); err != nil {
			return fmt.Errorf("invalid value %q: %w", raw, err)
		}
	}

	var (
		commitment common.Hash
		generated  *note.Note
	)
	if raw := c.String("commitment"); raw != "" {
		if commitment, err = parseHash(raw); err != nil {
			return fmt.Errorf("invalid commitment: %w", err)
		}
	} else {
		generated, err = note.Generate(env.cfg.HashFunction, env.pool.Denomination())
		if err != nil {
			return fmt.Errorf("failed to generate note: %w", err)
		}
		if commitment, err = generated.Commitment(); err != nil {
			return err
		}
	}

	receipt, err := env.pool.Deposit(c.Context, commitment, value)
	if err != nil {
		return fmt.Errorf("deposit failed: %w", err)
	}

	fmt.Printf("✅ Deposited %s at leaf %d\n", receipt.Commitment.Hex(), receipt.LeafIndex)
	fmt.Printf("  root: %s\n", receipt.Root.Hex())
	if generated != nil {
		fmt.Printf("🔑 Keep this note secret; it is the only way to withdraw:\n  %s\n", generated.Encode())
	}
	return nil
}

func withdrawCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.cfg.VerifyingKeyPath == "" {
		return fmt.Errorf("withdrawals require a verifying key (--verifying-key)")
	}

	nullifierHash, err := parseHash(c.String("nullifier-hash"))
	if err != nil {
		return fmt.Errorf("invalid nullifier hash: %w", err)
	}
	root, err := parseHash(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	recipient, err := parseAddress(c.String("recipient"))
	if err != nil {
		return err
	}
	proof, err := readProofPoints(c.String("proof"))
	if err != nil {
		return err
	}

	receipt, err := env.pool.Withdraw(c.Context, &pool.WithdrawRequest{
		NullifierHash: nullifierHash,
		Recipient:     recipient,
		Root:          root,
		Proof:         proof,
	})
	if err != nil {
		return fmt.Errorf("withdrawal failed: %w", err)
	}

	fmt.Printf("✅ Withdrew %s wei to %s (payout %s)\n", receipt.Amount.Dec(), receipt.Recipient.Hex(), receipt.PayoutID)

	// The ledger lives only for this process, so the output is the payout's only record.
	record, err := payoutRecord(env.ledger.Payouts(), receipt.PayoutID)
	if err != nil {
		return err
	}
	return printJSON(record)
}

func payoutRecord(records []escrow.Record, id string) (*escrow.Record, error) {
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("payout %s not found in ledger", id)
}

func calldataCommand(c *cli.Context) error {
	nullifierHash, err := parseHash(c.String("nullifier-hash"))
	if err != nil {
		return fmt.Errorf("invalid nullifier hash: %w", err)
	}
	root, err := parseHash(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	recipient, err := parseAddress(c.String("recipient"))
	if err != nil {
		return err
	}
	proof, err := readProofPoints(c.String("proof"))
	if err != nil {
		return err
	}

	data, err := verifier.EncodeCalldata(proof, verifier.PublicInputs(root, nullifierHash, recipient))
	if err != nil {
		return err
	}
	fmt.Println(hexutil.Encode(data))
	return nil
}

func rootCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	root, err := env.pool.Root()
	if err != nil {
		return err
	}
	fmt.Println(root.Hex())
	return nil
}

func statsCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	stats, err := env.pool.Stats()
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func proofCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	commitment, err := parseHash(c.String("commitment"))
	if err != nil {
		return fmt.Errorf("invalid commitment: %w", err)
	}

	proof, err := treeProof(env, c.String("root"), commitment)
	if err != nil {
		return err
	}
	return printJSON(proof)
}

func noteNewCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	denomination, err := cfg.DenominationValue()
	if err != nil {
		return err
	}

	n, err := note.Generate(cfg.HashFunction, denomination)
	if err != nil {
		return err
	}
	return printNote(n, true)
}

func noteInspectCommand(c *cli.Context) error {
	n, err := note.Decode(c.String("note"))
	if err != nil {
		return err
	}
	return printNote(n, false)
}

func witnessCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	n, err := note.Decode(c.String("note"))
	if err != nil {
		return err
	}
	if n.HashFunction != env.cfg.HashFunction {
		return fmt.Errorf("note uses hash function %q but pool uses %q", n.HashFunction, env.cfg.HashFunction)
	}
	if !n.Denomination.Eq(env.pool.Denomination()) {
		return fmt.Errorf("note denomination %s does not match pool denomination %s", n.Denomination.Dec(), env.pool.Denomination().Dec())
	}
	recipient, err := parseAddress(c.String("recipient"))
	if err != nil {
		return err
	}

	commitment, err := n.Commitment()
	if err != nil {
		return err
	}
	proof, err := treeProof(env, c.String("root"), commitment)
	if err != nil {
		return err
	}

	in, err := witness.Build(n, recipient, proof)
	if err != nil {
		return err
	}
	data, err := in.JSON()
	if err != nil {
		return err
	}

	if out := c.String("output"); out != "" {
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return errors.Wrapf(err, "failed to write witness to %s", out)
		}
		fmt.Printf("✅ Witness written to: %s\n", out)
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func checkpointCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	raw := c.String("root")
	if raw == "" {
		cp, err := env.pool.Checkpoint()
		if err != nil {
			return err
		}
		return printJSON(cp)
	}

	root, err := parseHash(raw)
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	proof, cp, err := env.pool.HistoryProof(root)
	if err != nil {
		return err
	}
	return printJSON(struct {
		Checkpoint *merkle.Checkpoint   `json:"checkpoint"`
		Proof      *merkle.HistoryProof `json:"proof"`
	}{cp, proof})
}

func healthCommand(c *cli.Context) error {
	env, err := newPoolEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.store.HealthCheck(); err != nil {
		return fmt.Errorf("store unhealthy: %w", err)
	}
	fmt.Printf("✅ %s store is healthy\n", env.cfg.Persistence.Type)
	return nil
}

func treeProof(env *poolEnv, rawRoot string, commitment common.Hash) (*smt.Proof, error) {
	if rawRoot == "" {
		return env.pool.Proof(commitment)
	}
	root, err := parseHash(rawRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}
	return env.pool.ProofAt(root, commitment)
}

func printNote(n *note.Note, withSecret bool) error {
	commitment, err := n.Commitment()
	if err != nil {
		return err
	}
	nullifierHash, err := n.NullifierHash()
	if err != nil {
		return err
	}
	key, err := n.CommitmentKey()
	if err != nil {
		return err
	}

	out := map[string]string{
		"hashFunction":  n.HashFunction,
		"denomination":  n.Denomination.Dec(),
		"commitment":    commitment.Hex(),
		"commitmentKey": key.Hex(),
		"nullifierHash": nullifierHash.Hex(),
	}
	if withSecret {
		out["note"] = n.Encode()
	}
	return printJSON(out)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) > common.HashLength {
		return common.Hash{}, fmt.Errorf("value is %d bytes, at most %d allowed", len(b), common.HashLength)
	}
	return common.BytesToHash(b), nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid recipient address: %s", s)
	}
	return common.HexToAddress(s), nil
}

func readProofPoints(path string) (verifier.ProofPoints, error) {
	var points verifier.ProofPoints
	data, err := os.ReadFile(path)
	if err != nil {
		return points, errors.Wrapf(err, "failed to read proof file %s", path)
	}
	if err := json.Unmarshal(data, &points); err != nil {
		return points, errors.Wrap(err, "failed to parse proof points")
	}
	return points, nil
}
