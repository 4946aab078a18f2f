//
// Created on 2024/5/24 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package abiutils

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/log"
)

type ABIElements []ABIEntry

// UnmarshalJSON accepts a JSON ABI, a list of human readable signatures, a
// mix of both, or a single signature string.
func (list *ABIElements) UnmarshalJSON(data []byte) error {
	if text, err := strconv.Unquote(string(data)); err == nil {
		entry, err := ParseMethodSig(text)
		if err != nil {
			return err
		}
		*list = append(*list, entry)
		return nil
	}

	rawEntries := []json.RawMessage{}
	if err := json.Unmarshal(data, &rawEntries); err != nil {
		return err
	}
	for _, raw := range rawEntries {
		var (
			entry ABIEntry
			err   error
		)
		if text, qerr := strconv.Unquote(string(raw)); qerr == nil {
			entry, err = ParseMethodSig(text)
		} else {
			err = json.Unmarshal(raw, &entry)
		}
		if err != nil {
			return err
		}
		*list = append(*list, entry)
	}
	return nil
}

func UnmarshalABI(data []byte) ([]ABIEntry, error) {
	list := ABIElements{}
	err := json.Unmarshal(data, &list)
	return list, err
}

// Registry maps selectors to the functions and custom errors they belong
// to. It labels trace frames and decodes revert payloads.
type Registry struct {
	methods map[MethodId]string
	errors  map[MethodId]abi.Error
}

func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[MethodId]string),
		errors:  make(map[MethodId]abi.Error),
	}
}

// ParseABI builds a registry from a contract ABI in any form UnmarshalABI
// accepts.
func ParseABI(data []byte) (*Registry, error) {
	entries, err := UnmarshalABI(data)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, entry := range entries {
		reg.AddEntry(entry)
	}
	return reg, nil
}

func (r *Registry) AddEntry(entry ABIEntry) {
	switch entry.Type {
	case "function", "":
		r.methods[entry.ID()] = entry.Sig()
	case "error":
		r.errors[entry.ID()] = abi.NewError(entry.Name, entry.Inputs)
	}
}

// AddSignature registers a human readable function or error signature.
func (r *Registry) AddSignature(sig string) error {
	entry, err := ParseMethodSig(sig)
	if err != nil {
		return err
	}
	r.AddEntry(entry)
	return nil
}

func (r *Registry) AddABI(contract *abi.ABI) {
	for _, method := range contract.Methods {
		r.methods[BytesToMethodId(method.ID)] = method.Sig
	}
	for _, abiErr := range contract.Errors {
		r.errors[BytesToMethodId(abiErr.ID[:4])] = abiErr
	}
}

func (r *Registry) AddInterface(item Interface) {
	r.AddABI(&item.ABI)
}

// Merge copies every entry of other into r.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	for id, sig := range other.methods {
		r.methods[id] = sig
	}
	for id, abiErr := range other.errors {
		r.errors[id] = abiErr
	}
}

func (r *Registry) Len() int {
	return len(r.methods) + len(r.errors)
}

// MethodName returns the signature of the function with selector id.
func (r *Registry) MethodName(id MethodId) (string, bool) {
	sig, ok := r.methods[id]
	return sig, ok
}

// Methods returns the known signatures of ids, skipping unknown selectors.
func (r *Registry) Methods(ids []MethodId) []string {
	sigs := make([]string, 0, len(ids))
	for _, id := range ids {
		if sig, ok := r.methods[id]; ok {
			sigs = append(sigs, sig)
		}
	}
	return sigs
}

// DecodeRevert renders a revert payload as Error(string), Panic(uint256) or
// one of the registered custom errors.
func (r *Registry) DecodeRevert(data []byte) (string, bool) {
	if reason, ok := DecodeRevert(data); ok {
		return reason, true
	}
	if len(data) < 4 {
		return "", false
	}
	abiErr, ok := r.errors[BytesToMethodId(data[:4])]
	if !ok {
		return "", false
	}
	values, err := abiErr.Unpack(data)
	if err != nil {
		return "", false
	}
	args, _ := values.([]interface{})
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprint(arg)
	}
	return fmt.Sprintf("%s(%s)", abiErr.Name, strings.Join(parts, ", ")), true
}

// DecodeRevert renders the standard Error(string) and Panic(uint256)
// payloads.
func DecodeRevert(data []byte) (string, bool) {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return "", false
	}
	return reason, true
}

// LoadLabels reads a label file of the form
//
//	{"4bytes": {"a9059cbb": ["transfer(address,uint256)"]}, "interfaces": {"IERC20": [...]}}
//
// where each list is anything UnmarshalABI accepts.
func LoadLabels(reader io.Reader) (*Registry, error) {
	dec := json.NewDecoder(reader)
	var data struct {
		FourBytes  map[string]ABIElements `json:"4bytes"`     // 4-bytes sigs to abi list
		Interfaces map[string]ABIElements `json:"interfaces"` // interface name to abi list
	}
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for id, list := range data.FourBytes {
		want := HexToMethodId(id)
		for _, entry := range list {
			if entry.ID() != want {
				log.Warn("Skipping mismatched 4-bytes entry", "id", id, "sig", entry.Sig())
				continue
			}
			reg.AddEntry(entry)
		}
	}
	names := make([]string, 0, len(data.Interfaces))
	for name := range data.Interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		item, err := NewInterface(name, data.Interfaces[name])
		if err != nil {
			log.Error("Invalid contract interface", "name", name, "error", err)
			continue
		}
		reg.AddInterface(item)
	}
	log.Info(fmt.Sprintf("Loaded %d ABI labels from %d interfaces", reg.Len(), len(names)))
	return reg, nil
}
