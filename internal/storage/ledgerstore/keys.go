package ledgerstore

import (
	"encoding/binary"

	"github.com/tokenrelay/relayd/internal/core/token"
)

// Key prefixes. Currency identifiers never contain the zero byte, which
// keeps the balance key unambiguous.
const (
	prefixBalance = 'b'
	prefixSupply  = 's'
	prefixRelay   = 'r'
	prefixJournal = 'j'
	prefixMeta    = 'm'
)

func balanceKey(c token.Currency, a token.Account) []byte {
	key := make([]byte, 0, 2+len(c)+1+len(a))
	key = append(key, prefixBalance)
	key = append(key, c...)
	key = append(key, 0)
	key = append(key, a...)
	return key
}

func supplyKey(c token.Currency) []byte {
	key := make([]byte, 0, 1+len(c))
	key = append(key, prefixSupply)
	key = append(key, c...)
	return key
}

func relayStateKey(c token.Currency) []byte {
	key := make([]byte, 0, 1+len(c))
	key = append(key, prefixRelay)
	key = append(key, c...)
	return key
}

func journalKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixJournal
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

// journalSeqKey holds the next journal sequence number.
func journalSeqKey() []byte {
	return []byte{prefixMeta, 'j'}
}
