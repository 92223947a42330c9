package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed UserRegistration.json
var defaultArtifact []byte

// Deployment is one entry of a truffle artifact's networks map.
type Deployment struct {
	Address         string `json:"address"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

// Artifact is a compiled contract: its ABI plus the addresses it is deployed
// at, keyed by network id.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Networks     map[string]Deployment
}

// ParseArtifact decodes a truffle build artifact.
func ParseArtifact(data []byte) (*Artifact, error) {
	var raw struct {
		ContractName string                `json:"contractName"`
		ABI          json.RawMessage       `json:"abi"`
		Networks     map[string]Deployment `json:"networks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact %q has no abi", raw.ContractName)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}

	if raw.Networks == nil {
		raw.Networks = make(map[string]Deployment)
	}
	return &Artifact{ContractName: raw.ContractName, ABI: parsed, Networks: raw.Networks}, nil
}

// LoadArtifact reads an artifact from path. An empty path yields the built-in
// UserRegistration ABI with no deployments.
func LoadArtifact(path string) (*Artifact, error) {
	if path == "" {
		return ParseArtifact(defaultArtifact)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	return ParseArtifact(data)
}

// AddressFor returns the contract address deployed on networkID.
func (a *Artifact) AddressFor(networkID *big.Int) (common.Address, error) {
	if networkID == nil {
		return common.Address{}, fmt.Errorf("%w: unknown network", ErrContractNotDeployed)
	}
	d, ok := a.Networks[networkID.String()]
	if !ok || d.Address == "" {
		return common.Address{}, fmt.Errorf("%w on network with id %s", ErrContractNotDeployed, networkID)
	}
	if !common.IsHexAddress(d.Address) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q for network %s", ErrContractNotDeployed, d.Address, networkID)
	}
	return common.HexToAddress(d.Address), nil
}

// WithDeployment returns a copy of a with an extra deployment entry. Used when
// the address is supplied out of band rather than by the build artifact.
func (a *Artifact) WithDeployment(networkID *big.Int, address common.Address) *Artifact {
	networks := make(map[string]Deployment, len(a.Networks)+1)
	for k, v := range a.Networks {
		networks[k] = v
	}
	networks[networkID.String()] = Deployment{Address: address.Hex()}
	return &Artifact{ContractName: a.ContractName, ABI: a.ABI, Networks: networks}
}
