package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"errors"
	"fmt"
)

// ErrPasswordRequired is returned for documents that cannot be opened with
// the empty user password.
var ErrPasswordRequired = errors.New("pdf: document requires a password")

// EncryptDict represents the standard security handler dictionary.
type EncryptDict struct {
	Filter          string
	V               int
	R               int
	O               []byte
	U               []byte
	P               int32
	Length          int // key length in bits
	EncryptMetadata bool
	// AES is set when the default crypt filter uses /AESV2.
	AES bool
}

// EncryptionHandler decrypts strings and streams of one document.
type EncryptionHandler struct {
	Dict       *EncryptDict
	FileID     []byte
	EncryptKey []byte
}

// passwordPad fills short passwords out to 32 bytes.
var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// ParseEncryptDict extracts the encryption parameters from the /Encrypt object.
func ParseEncryptDict(obj Object, reader *Reader) (*EncryptDict, error) {
	dict, ok := obj.(DictionaryObject)
	if !ok {
		return nil, errors.New("/Encrypt is not a dictionary")
	}

	ed := &EncryptDict{
		Filter:          nameOf(dict, "/Filter"),
		V:               intOf(reader.Resolve(dict["/V"]), 0),
		R:               intOf(reader.Resolve(dict["/R"]), 0),
		P:               int32(intOf(reader.Resolve(dict["/P"]), 0)),
		EncryptMetadata: true,
	}

	if ed.Filter != "/Standard" {
		return nil, fmt.Errorf("unsupported encryption filter: %q", ed.Filter)
	}
	if ed.R == 0 {
		return nil, errors.New("/Encrypt has no revision (/R)")
	}

	var err error
	if ed.O, err = bytesOf(reader.Resolve(dict["/O"])); err != nil {
		return nil, fmt.Errorf("/O: %w", err)
	}
	if ed.U, err = bytesOf(reader.Resolve(dict["/U"])); err != nil {
		return nil, fmt.Errorf("/U: %w", err)
	}

	switch {
	case ed.V == 1 || ed.R == 2:
		ed.Length = 40
	default:
		ed.Length = intOf(reader.Resolve(dict["/Length"]), 128)
	}
	if ed.Length < 40 || ed.Length > 128 || ed.Length%8 != 0 {
		ed.Length = 128
	}

	if v, ok := dict["/EncryptMetadata"].(BooleanObject); ok && !bool(v) {
		ed.EncryptMetadata = false
	}

	if ed.V == 4 {
		// Look at the default stream filter to pick RC4 or AES.
		cf, _ := reader.Resolve(dict["/CF"]).(DictionaryObject)
		stmf := nameOf(dict, "/StmF")
		if stmf == "" {
			stmf = "/Identity"
		}
		if filter, ok := reader.Resolve(cf[stmf]).(DictionaryObject); ok {
			ed.AES = nameOf(filter, "/CFM") == "/AESV2"
			if n := intOf(filter["/Length"], 0); n > 0 {
				// /Length in crypt filters may be in bytes.
				if n <= 16 {
					n *= 8
				}
				ed.Length = n
			}
		}
	}

	return ed, nil
}

func bytesOf(o Object) ([]byte, error) {
	switch v := o.(type) {
	case StringObject:
		return []byte(v), nil
	case HexStringObject:
		return []byte(v), nil
	}
	return nil, errors.New("missing or not a string")
}

// NewEncryptionHandler derives the file key from the empty user password
// and checks it against /U.
func NewEncryptionHandler(ed *EncryptDict, fileID []byte) (*EncryptionHandler, error) {
	if ed == nil {
		return nil, errors.New("nil encryption dictionary")
	}
	switch ed.V {
	case 1, 2, 4:
	default:
		return nil, fmt.Errorf("unsupported encryption version %d", ed.V)
	}

	h := &EncryptionHandler{
		Dict:   ed,
		FileID: fileID,
	}
	h.EncryptKey = h.fileKey(nil)

	if !h.userPasswordMatches() {
		return nil, ErrPasswordRequired
	}
	return h, nil
}

func padPassword(password []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, password)
	copy(padded[n:], passwordPad)
	return padded
}

// fileKey is algorithm 2 of the standard security handler.
func (h *EncryptionHandler) fileKey(password []byte) []byte {
	hash := md5.New()
	hash.Write(padPassword(password))
	hash.Write(h.Dict.O)
	p := h.Dict.P
	hash.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	hash.Write(h.FileID)
	if h.Dict.R >= 4 && !h.Dict.EncryptMetadata {
		hash.Write(bytes.Repeat([]byte{0xFF}, 4))
	}
	digest := hash.Sum(nil)

	n := h.Dict.Length / 8
	if h.Dict.R >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(digest[:n])
			digest = sum[:]
		}
	}
	return digest[:n]
}

// userPasswordMatches runs algorithms 4/5 with the derived key.
func (h *EncryptionHandler) userPasswordMatches() bool {
	if len(h.Dict.U) < 16 {
		return false
	}
	if h.Dict.R == 2 {
		c, err := rc4.NewCipher(h.EncryptKey)
		if err != nil {
			return false
		}
		out := make([]byte, 32)
		c.XORKeyStream(out, passwordPad)
		return len(h.Dict.U) >= 32 && bytes.Equal(out, h.Dict.U[:32])
	}

	hash := md5.New()
	hash.Write(passwordPad)
	hash.Write(h.FileID)
	out := hash.Sum(nil)
	key := make([]byte, len(h.EncryptKey))
	for i := 0; i < 20; i++ {
		for j := range key {
			key[j] = h.EncryptKey[j] ^ byte(i)
		}
		c, err := rc4.NewCipher(key)
		if err != nil {
			return false
		}
		c.XORKeyStream(out, out)
	}
	return bytes.Equal(out[:16], h.Dict.U[:16])
}

// objectKey is algorithm 1: the per-object key.
func (h *EncryptionHandler) objectKey(objNum, genNum int) []byte {
	keyLen := len(h.EncryptKey)
	key := make([]byte, keyLen, keyLen+9)
	copy(key, h.EncryptKey)
	key = append(key,
		byte(objNum), byte(objNum>>8), byte(objNum>>16),
		byte(genNum), byte(genNum>>8))
	if h.Dict.AES {
		key = append(key, 's', 'A', 'l', 'T')
	}

	sum := md5.Sum(key)
	n := keyLen + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}

func (h *EncryptionHandler) rc4Decrypt(data []byte, objNum, genNum int) ([]byte, error) {
	c, err := rc4.NewCipher(h.objectKey(objNum, genNum))
	if err != nil {
		return nil, fmt.Errorf("rc4: %w", err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}

func (h *EncryptionHandler) aesDecrypt(data []byte, objNum, genNum int) ([]byte, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("aes: %d bytes is shorter than the IV", len(data))
	}
	block, err := aes.NewCipher(h.objectKey(objNum, genNum))
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}

	iv, ciphertext := data[:16], data[16:]
	ciphertext = ciphertext[:len(ciphertext)-len(ciphertext)%aes.BlockSize]
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return removePadding(out), nil
}

// removePadding strips PKCS#7 padding, leaving malformed padding in place.
func removePadding(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return data
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return data
		}
	}
	return data[:len(data)-n]
}

// Decrypt decrypts one string or stream belonging to objNum/genNum.
func (h *EncryptionHandler) Decrypt(data []byte, objNum, genNum int) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if h.Dict.AES {
		return h.aesDecrypt(data, objNum, genNum)
	}
	return h.rc4Decrypt(data, objNum, genNum)
}
