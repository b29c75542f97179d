package abis

import "github.com/ethereum/go-ethereum/accounts/abi"

// GetAggregatorV3ABI returns the ABI of a Chainlink EACAggregatorProxy, which is a
// superset of AggregatorV3Interface. Underlying aggregators answer the subset they
// implement (latest*, getRoundData, description, version, decimals).
func GetAggregatorV3ABI() (*abi.ABI, error) {
	return ParseABI(`[
		{
			"inputs": [],
			"name": "latestRoundData",
			"outputs": [
				{"name": "roundId", "type": "uint80"},
				{"name": "answer", "type": "int256"},
				{"name": "startedAt", "type": "uint256"},
				{"name": "updatedAt", "type": "uint256"},
				{"name": "answeredInRound", "type": "uint80"}
			],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [{"name": "_roundId", "type": "uint80"}],
			"name": "getRoundData",
			"outputs": [
				{"name": "roundId", "type": "uint80"},
				{"name": "answer", "type": "int256"},
				{"name": "startedAt", "type": "uint256"},
				{"name": "updatedAt", "type": "uint256"},
				{"name": "answeredInRound", "type": "uint80"}
			],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "latestAnswer",
			"outputs": [{"name": "", "type": "int256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "decimals",
			"outputs": [{"name": "", "type": "uint8"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "description",
			"outputs": [{"name": "", "type": "string"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "version",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "phaseId",
			"outputs": [{"name": "", "type": "uint16"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [{"name": "", "type": "uint16"}],
			"name": "phaseAggregators",
			"outputs": [{"name": "", "type": "address"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "aggregator",
			"outputs": [{"name": "", "type": "address"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)
}
