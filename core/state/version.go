package state

import (
	"errors"
	"strings"
)

var contractInfoKey = []byte("contract_info")

// ErrContractVersionMissing is returned when no version record exists.
var ErrContractVersionMissing = errors.New("state: contract version not recorded")

// ContractVersion records which contract implementation owns a namespace.
// Migrations compare the stored name before touching state.
type ContractVersion struct {
	Contract string
	Version  string
}

// SetContractVersion stores the name and version of the running contract.
func SetContractVersion(m *Manager, contract, version string) error {
	return m.KVPut(contractInfoKey, &ContractVersion{
		Contract: strings.TrimSpace(contract),
		Version:  strings.TrimSpace(version),
	})
}

// GetContractVersion loads the stored record.
func GetContractVersion(m *Manager) (ContractVersion, error) {
	var out ContractVersion
	ok, err := m.KVGet(contractInfoKey, &out)
	if err != nil {
		return ContractVersion{}, err
	}
	if !ok {
		return ContractVersion{}, ErrContractVersionMissing
	}
	return out, nil
}
