package gateway

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"bridge-backend/internal/config"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// bridgeABI is the minimal surface of the bridge contract the gateway talks to
const bridgeABI = `[
	{"name":"lock","type":"function","inputs":[{"name":"account","type":"address"},{"name":"amount","type":"uint256"},{"name":"reference","type":"bytes32"}]},
	{"name":"release","type":"function","inputs":[{"name":"account","type":"address"},{"name":"amount","type":"uint256"},{"name":"reference","type":"bytes32"}]},
	{"name":"mint","type":"function","inputs":[{"name":"account","type":"address"},{"name":"amount","type":"uint256"},{"name":"evidence","type":"bytes32"}]}
]`

// evmGateway implements ChainGateway for EVM-compatible chains
type evmGateway struct {
	chainName   string
	chainID     *big.Int
	client      *ethclient.Client
	contract    common.Address
	privateKey  *ecdsa.PrivateKey
	fromAddress common.Address
	decimals    int32
	abi         abi.ABI
	callTimeout time.Duration
}

// newEVMGateway dials the first reachable RPC endpoint and prepares the
// signing key
func newEVMGateway(name string, cfg config.NetworkConfig, callTimeout time.Duration) (*evmGateway, error) {
	if len(cfg.RPCEndpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured")
	}

	var client *ethclient.Client
	var dialErr error
	for _, endpoint := range cfg.RPCEndpoints {
		client, dialErr = ethclient.Dial(endpoint)
		if dialErr == nil {
			log.Printf("✅ [Gateway] Connected to %s via %s", name, endpoint)
			break
		}
		log.Printf("⚠️ [Gateway] Failed to dial %s endpoint %s: %v", name, endpoint, dialErr)
	}
	if client == nil {
		return nil, fmt.Errorf("all RPC endpoints unreachable: %w", dialErr)
	}

	parsedABI, err := abi.JSON(strings.NewReader(bridgeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bridge ABI: %w", err)
	}

	gw := &evmGateway{
		chainName:   name,
		chainID:     big.NewInt(cfg.ChainID),
		client:      client,
		contract:    common.HexToAddress(cfg.BridgeContract),
		decimals:    cfg.NativeDecimals,
		abi:         parsedABI,
		callTimeout: callTimeout,
	}
	if gw.decimals == 0 {
		gw.decimals = 18
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		gw.privateKey = key
		gw.fromAddress = crypto.PubkeyToAddress(key.PublicKey)
	}

	return gw, nil
}

// Lock submits a lock transaction against the bridge contract
func (g *evmGateway) Lock(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error) {
	return g.submit(ctx, "lock", address, amount, reference)
}

// Release submits a release transaction against the bridge contract
func (g *evmGateway) Release(ctx context.Context, address string, amount decimal.Decimal, reference string) (string, error) {
	return g.submit(ctx, "release", address, amount, reference)
}

// Mint submits a mint transaction carrying the proof evidence
func (g *evmGateway) Mint(ctx context.Context, address string, amount decimal.Decimal, evidence string) (string, error) {
	return g.submit(ctx, "mint", address, amount, evidence)
}

// submit packs, signs, and sends one contract call as an EIP-155 legacy
// transaction
func (g *evmGateway) submit(ctx context.Context, method, address string, amount decimal.Decimal, reference string) (string, error) {
	if g.privateKey == nil {
		return "", fmt.Errorf("no signing key configured for chain %s", g.chainName)
	}

	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	units := g.toBaseUnits(amount)
	refHash := crypto.Keccak256Hash([]byte(reference))

	callData, err := g.abi.Pack(method, common.HexToAddress(address), units, refHash)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s call data: %w", method, err)
	}

	nonce, err := g.client.PendingNonceAt(ctx, g.fromAddress)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &g.contract,
		Value:    big.NewInt(0),
		Gas:      300000,
		GasPrice: gasPrice,
		Data:     callData,
	})

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(g.chainID), g.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := g.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send %s transaction: %w", method, err)
	}

	txHash := signedTx.Hash().Hex()
	log.Printf("📤 [Gateway] %s.%s submitted: tx=%s, account=%s, amount=%s", g.chainName, method, txHash, address, amount.String())
	return txHash, nil
}

// GetBalance reads the native balance of address
func (g *evmGateway) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	balance, err := g.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance of %s: %w", address, err)
	}
	return decimal.NewFromBigInt(balance, -g.decimals), nil
}

// GetTransactionStatus reports the receipt status of txHash
func (g *evmGateway) GetTransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	receipt, err := g.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		// Not yet mined is a pending answer, not an error
		if strings.Contains(err.Error(), "not found") {
			return TxStatusPending, nil
		}
		return "", fmt.Errorf("failed to get receipt for %s: %w", txHash, err)
	}
	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return TxStatusCompleted, nil
	}
	return TxStatusFailed, nil
}

// toBaseUnits converts a decimal amount to the chain's integer base units
func (g *evmGateway) toBaseUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(g.decimals).Truncate(0).BigInt()
}
