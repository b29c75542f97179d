package config

// defaultChains mirrors the networks the tool has endpoints for. Directory slugs
// follow the reference data directory file names.
var defaultChains = map[string]ChainConfig{
	"mainnet": {
		ID:        1,
		RPCURL:    "https://mainnet.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "mainnet",
	},
	"sepolia": {
		ID:        11_155_111,
		RPCURL:    "https://sepolia.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "ethereum-testnet-sepolia",
	},
	"polygon": {
		ID:        137,
		RPCURL:    "https://polygon-mainnet.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "matic-mainnet",
	},
	"mumbai": {
		ID:        80_001,
		RPCURL:    "https://polygon-mumbai.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "matic-testnet",
	},
	"optimism": {
		ID:        10,
		RPCURL:    "https://optimism-mainnet.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "ethereum-mainnet-optimism-1",
	},
	"optimism-goerli": {
		ID:        420,
		RPCURL:    "https://optimism-goerli.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "ethereum-testnet-goerli-optimism-1",
	},
	"arbitrum": {
		ID:        42_161,
		RPCURL:    "https://arbitrum-mainnet.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "ethereum-mainnet-arbitrum-1",
	},
	"arbitrum-goerli": {
		ID:        421_613,
		RPCURL:    "https://arbitrum-goerli.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "ethereum-testnet-goerli-arbitrum-1",
	},
	"avalanche": {
		ID:        43_114,
		RPCURL:    "https://avalanche-mainnet.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "avalanche-mainnet",
	},
	"fuji": {
		ID:        43_113,
		RPCURL:    "https://avalanche-fuji.infura.io/v3/" + RPCURLIDPlaceholder,
		Directory: "avalanche-fuji-testnet",
	},
	"bsc-testnet": {
		ID:        97,
		RPCURL:    "https://data-seed-prebsc-1-s1.binance.org:8545/",
		Directory: "bsc-testnet",
	},
	"base-goerli": {
		ID:        84_531,
		RPCURL:    "https://base-goerli.blockpi.network/v1/rpc/public",
		Directory: "ethereum-testnet-goerli-base-1",
	},
}
