package pdftest

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"fmt"
)

var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// Security encrypts objects with the standard security handler and an
// empty user password: revision 2 RC4 with a 40-bit key, or revision 4
// AESV2 with a 128-bit key.
type Security struct {
	AES bool

	id   []byte
	o, u []byte
	p    int32
	key  []byte
}

// NewSecurity derives the file key for the document ID id.
func NewSecurity(id []byte, useAES bool) *Security {
	s := &Security{AES: useAES, id: id, p: -4}
	// Only the hash of /O matters when opening with the user password.
	s.o = bytes.Repeat([]byte{'O'}, 32)

	n, rev := 5, 2
	if useAES {
		n, rev = 16, 4
	}

	h := md5.New()
	h.Write(passwordPad)
	h.Write(s.o)
	binary.Write(h, binary.LittleEndian, s.p)
	h.Write(id)
	digest := h.Sum(nil)
	if rev >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(digest[:n])
			digest = sum[:]
		}
	}
	s.key = digest[:n]

	if rev == 2 {
		s.u = xorStream(s.key, passwordPad)
		return s
	}
	sum := md5.Sum(append(append([]byte(nil), passwordPad...), id...))
	u := sum[:]
	k := make([]byte, n)
	for i := 0; i < 20; i++ {
		for j := range k {
			k[j] = s.key[j] ^ byte(i)
		}
		u = xorStream(k, u)
	}
	s.u = append(u, make([]byte, 16)...)
	return s
}

// Dict is the /Encrypt dictionary.
func (s *Security) Dict() string {
	if s.AES {
		return fmt.Sprintf("<< /Filter /Standard /V 4 /R 4 /Length 128 "+
			"/CF << /StdCF << /CFM /AESV2 /Length 16 >> >> /StmF /StdCF /StrF /StdCF "+
			"/O <%X> /U <%X> /P %d >>", s.o, s.u, s.p)
	}
	return fmt.Sprintf("<< /Filter /Standard /V 1 /R 2 /O <%X> /U <%X> /P %d >>", s.o, s.u, s.p)
}

// Trailer returns the trailer entries naming the dictionary object enc.
func (s *Security) Trailer(enc int) string {
	return fmt.Sprintf("/Encrypt %d 0 R /ID [<%X> <%X>]", enc, s.id, s.id)
}

// Encrypt encrypts a string or stream belonging to object num, generation 0.
func (s *Security) Encrypt(num int, data []byte) []byte {
	k := append(append([]byte(nil), s.key...), byte(num), byte(num>>8), byte(num>>16), 0, 0)
	if s.AES {
		k = append(k, "sAlT"...)
	}
	sum := md5.Sum(k)
	key := sum[:min(len(s.key)+5, 16)]

	if !s.AES {
		return xorStream(key, data)
	}
	block, _ := aes.NewCipher(key)
	pad := aes.BlockSize - len(data)%aes.BlockSize
	plain := append(append([]byte(nil), data...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	iv := []byte("0123456789abcdef")
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)
	return append(append([]byte(nil), iv...), out...)
}

func xorStream(key, data []byte) []byte {
	c, _ := rc4.NewCipher(key)
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}
