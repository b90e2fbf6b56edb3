package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/pkg/config"
	"github.com/tradepulse/custody/pkg/currency"
)

// ERC-20 method selectors.
var (
	transferSelector  = common.Hex2Bytes("a9059cbb")
	balanceOfSelector = common.Hex2Bytes("70a08231")
)

// EVMClient signs and submits token transfers from the custodial wallet on
// one EVM network.
type EVMClient struct {
	network        string
	chainID        *big.Int
	client         *ethclient.Client
	key            *ecdsa.PrivateKey
	fromAddress    common.Address
	tokenAddress   common.Address
	tokenDecimals  int32
	gasFloorWei    *big.Int
	confirmTimeout time.Duration
	pollInterval   time.Duration
	logger         zerolog.Logger
}

func NewEVMClient(network string, cfg config.ChainConfig, logger zerolog.Logger) (*EVMClient, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s RPC: %w", network, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s signing key: %w", network, err)
	}

	return &EVMClient{
		network:        network,
		chainID:        big.NewInt(cfg.ChainID),
		client:         client,
		key:            key,
		fromAddress:    crypto.PubkeyToAddress(key.PublicKey),
		tokenAddress:   common.HexToAddress(cfg.TokenAddress),
		tokenDecimals:  cfg.TokenDecimals,
		gasFloorWei:    new(big.Int).Mul(big.NewInt(cfg.GasFloorGwei), big.NewInt(1e9)),
		confirmTimeout: cfg.ConfirmTimeout,
		pollInterval:   cfg.PollInterval,
		logger:         logger.With().Str("network", network).Logger(),
	}, nil
}

func (c *EVMClient) Network() string {
	return c.network
}

func (c *EVMClient) Transfer(ctx context.Context, destination string, amountCents int64) (*domain.TransferReceipt, error) {
	if !common.IsHexAddress(destination) {
		return nil, domain.NewWithdrawalError(domain.ErrKindTransferFailed,
			fmt.Sprintf("invalid destination address %q", destination))
	}
	if amountCents <= 0 {
		return nil, domain.NewWithdrawalError(domain.ErrKindTransferFailed,
			"transfer amount must be positive")
	}

	units := currency.CentsToTokenUnits(amountCents, c.tokenDecimals)
	to := common.HexToAddress(destination)

	tokenBalance, err := c.tokenBalance(ctx, c.fromAddress)
	if err != nil {
		return nil, domain.WrapWithdrawalError(domain.ErrKindTransferFailed,
			"failed to read custodial token balance", err)
	}
	if tokenBalance.Cmp(units) < 0 {
		c.logger.Warn().
			Str("token_balance", tokenBalance.String()).
			Str("required", units.String()).
			Msg("Custodial wallet cannot cover transfer")
		return nil, domain.NewWithdrawalError(domain.ErrKindInsufficientCustodialFunds,
			"custodial wallet token balance below transfer amount")
	}

	nativeBalance, err := c.client.BalanceAt(ctx, c.fromAddress, nil)
	if err != nil {
		return nil, domain.WrapWithdrawalError(domain.ErrKindTransferFailed,
			"failed to read custodial native balance", err)
	}
	if nativeBalance.Sign() == 0 {
		return nil, domain.NewWithdrawalError(domain.ErrKindInsufficientGasFunds,
			"custodial wallet has no native currency for gas")
	}

	data := transferCallData(to, units)
	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.fromAddress,
		To:   &c.tokenAddress,
		Data: data,
	})
	if err != nil {
		return nil, mapRPCError("gas estimation failed", err)
	}
	gasLimit += gasLimit / 5 // 20% safety buffer

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		// Oracle unavailable; fall back to the configured floor.
		c.logger.Warn().Err(err).Msg("Gas price oracle unavailable, using floor")
		gasPrice = new(big.Int).Set(c.gasFloorWei)
	}
	if gasPrice.Cmp(c.gasFloorWei) < 0 {
		gasPrice = new(big.Int).Set(c.gasFloorWei)
	}

	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)
	if nativeBalance.Cmp(gasCost) < 0 {
		c.logger.Warn().
			Str("native_balance", nativeBalance.String()).
			Str("gas_cost", gasCost.String()).
			Msg("Custodial wallet cannot cover gas")
		return nil, domain.NewWithdrawalError(domain.ErrKindInsufficientGasFunds,
			"custodial wallet cannot cover gas cost")
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		return nil, mapRPCError("failed to fetch nonce", err)
	}

	tx := types.NewTransaction(nonce, c.tokenAddress, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, domain.WrapWithdrawalError(domain.ErrKindTransferFailed,
			"failed to sign transaction", err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return nil, mapRPCError("broadcast rejected", err)
	}

	txHash := signed.Hash().Hex()
	c.logger.Info().
		Str("tx_hash", txHash).
		Str("to", destination).
		Int64("amount_cents", amountCents).
		Msg("Transfer broadcast, waiting for confirmation")

	receipt, err := c.waitConfirmed(ctx, signed.Hash())
	if err != nil {
		// The transaction may still confirm; surface the hash so the
		// reconciliation sweep can resolve it.
		return nil, &domain.WithdrawalError{
			Kind:    domain.ErrKindConfirmationTimeout,
			Message: "confirmation wait exceeded, transaction may still confirm",
			TxHash:  txHash,
			Err:     err,
		}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &domain.WithdrawalError{
			Kind:    domain.ErrKindTransferFailed,
			Message: "transaction reverted on chain",
			TxHash:  txHash,
		}
	}

	return &domain.TransferReceipt{
		TxHash:      txHash,
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Int64(),
	}, nil
}

func (c *EVMClient) ConfirmedTransfer(ctx context.Context, txHash string) (*domain.TransferReceipt, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch receipt for %s: %w", txHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &domain.WithdrawalError{
			Kind:    domain.ErrKindTransferFailed,
			Message: "transaction reverted on chain",
			TxHash:  txHash,
		}
	}
	return &domain.TransferReceipt{
		TxHash:      txHash,
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Int64(),
	}, nil
}

func (c *EVMClient) waitConfirmed(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(waitCtx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Warn().Err(err).Str("tx_hash", hash.Hex()).Msg("Receipt poll failed")
		}

		select {
		case <-waitCtx.Done():
			return nil, waitCtx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EVMClient) tokenBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.tokenAddress,
		Data: data,
	}, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

func transferCallData(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 68)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}
