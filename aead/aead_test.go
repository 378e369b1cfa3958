package aead_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/norx64/norx/aead"
)

// Test inputs shared by all known-answer vectors: the key counts up from 0x00,
// the nonce from 0x00, the header from 0x00, the payload from 0x20, and the
// trailer from 0x40.
func testKey() []byte   { return pattern(aead.KeySize, 0x00) }
func testNonce() []byte { return pattern(aead.NonceSize, 0x00) }

func pattern(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

var vectors = []struct {
	alen, mlen, zlen int
	ciphertext       string
	tag              string
}{
	{
		alen: 0, mlen: 0, zlen: 0,
		tag: "6a042663ee00f3ee95e9d1b6b3b16810e97c7be0e5393f4710337f4770650b05",
	},
	{
		alen: 5, mlen: 0, zlen: 0,
		tag: "85c62980eb68530aaf3dcac7995b9cc9303ae509e91810b64f7e5655eed4e863",
	},
	{
		alen: 0, mlen: 5, zlen: 0,
		ciphertext: "ebc7e8a60b",
		tag:        "1205cdff2b3f66f19516a067a75659f3e6fa223c89a4be38e274304986faff2f",
	},
	{
		alen: 0, mlen: 0, zlen: 5,
		tag: "6a5db56905a77f8c8705a06e1b0a3b896e57884e19b36a69229d95309caeaa42",
	},
	{
		alen: 0, mlen: 1, zlen: 0,
		ciphertext: "eb",
		tag:        "421565b8c503cfc90c60fed2b4ecd851e4b217dea1e872afe370e90abfeacdd2",
	},
	{
		alen: 0, mlen: 95, zlen: 0,
		ciphertext: "ebc7e8a60b40c44d04a907f10da6247ce213110277ed0047d7e8a78a392327f9" +
			"f5093f03b6a60cb434944f0a0df986b641d8a90211ea1dfc37d9a907bc26d406" +
			"0ba270ced503c72fadfed9647371e137b71f6d249d1a1a5c98b632d02f75bd",
		tag: "dce1f62f983899dfc650e32b2dc283d866e8725a45adf6e167432ba2aa13ac83",
	},
	{
		alen: 0, mlen: 96, zlen: 0,
		ciphertext: "ebc7e8a60b40c44d04a907f10da6247ce213110277ed0047d7e8a78a392327f9" +
			"f5093f03b6a60cb434944f0a0df986b641d8a90211ea1dfc37d9a907bc26d406" +
			"0ba270ced503c72fadfed9647371e137b71f6d249d1a1a5c98b632d02f75bdb8",
		tag: "b17c70047716dd1697ceffd51990af31383fa25972ed05fd008dd474d2fea847",
	},
	{
		alen: 0, mlen: 97, zlen: 0,
		ciphertext: "ebc7e8a60b40c44d04a907f10da6247ce213110277ed0047d7e8a78a392327f9" +
			"f5093f03b6a60cb434944f0a0df986b641d8a90211ea1dfc37d9a907bc26d406" +
			"0ba270ced503c72fadfed9647371e137b71f6d249d1a1a5c98b632d02f75bdb8" +
			"e2",
		tag: "2f4269e1b4bcc27b9827edd4a49fb1fdb590bc09424a9f25c4c107b7f91d0e6b",
	},
	{
		alen: 0, mlen: 192, zlen: 0,
		ciphertext: "ebc7e8a60b40c44d04a907f10da6247ce213110277ed0047d7e8a78a392327f9" +
			"f5093f03b6a60cb434944f0a0df986b641d8a90211ea1dfc37d9a907bc26d406" +
			"0ba270ced503c72fadfed9647371e137b71f6d249d1a1a5c98b632d02f75bdb8" +
			"e28e9002eaabbfef20c887d84a88396ddf5c8b777d4639a7906c5f1d704c3217" +
			"c1210a72a40b95dd246c647b07cedef7eb14144b78d57c302d8038843453ea69" +
			"cb6930481b80d5f6fd9232afc77dec85a163ba1b944bae0c89568232a3d6b316",
		tag: "e63d0bcff966c7fdc0b7efab6c113726aea98b2c8fe149bd5ac65edfc5fe30bf",
	},
	{
		alen: 96, mlen: 0, zlen: 0,
		tag: "650bb185a8d882300eb7153e8ed2ba69dd02b14ce15beba16ba6609acc6963dd",
	},
	{
		alen: 96, mlen: 96, zlen: 96,
		ciphertext: "17a6bb1d98503160cc0d3a746ad90573023febee4f007f25876b3f95ee8550e5" +
			"d9fb00fafaee596d38f5b0a72c5198a64329aa292b9876f5a1ddb1373e95fcd1" +
			"1715bd373fb5100b1f8627c7627779d4acc6cdd25fc923e2f11970cf92840cf8",
		tag: "13efededec849524a8f14c3a48516a9a1526d604a731fe6a4670f0eb74c86d2d",
	},
	{
		alen: 95, mlen: 95, zlen: 95,
		ciphertext: "0c74a40ef7c0167633ff395bf90c85609e98cd7e3e3cec4263d0c537d4c361c0" +
			"74b6df68146e6c52e925ebbbc17a1112302f99c5b59d09a441ba357c4c1a45a5" +
			"859ff5af85c9b295c9d0a99ba70b03c2cd3cedf85f4abb738d4b45ede9e6c2",
		tag: "0414c4da24454171182018a374e81af5e9d71fdfea402dc7b2c720043ff164bd",
	},
	{
		alen: 7, mlen: 100, zlen: 13,
		ciphertext: "8854e13915843aade17474d6b712e565474265add259ef947e19562133805fa8" +
			"229dcfc9af2c03ada29b1c2fdb2db5b3ebd58c8d3df8a8c62a0e10cf3c30dd47" +
			"bcaed902c566171071a805ad61d9b0ea56eae3263fe024aa74f64af98001354d" +
			"58fbaba3",
		tag: "95cdcac62a02bdbb4fa586ba65a6b709b1b42519178109e01310b806470efa01",
	},
	{
		alen: 128, mlen: 43, zlen: 17,
		ciphertext: "c46b351453e43252c6d82a06839530350c439154b76597d6001d50046fab9c43" +
			"eb9195486982acdf2587e3",
		tag: "7f5ed35cb3d2c820582539af082531d324091dadbef49245c30b93e0bbdf0018",
	},
}

func TestVectors(t *testing.T) {
	for _, v := range vectors {
		t.Run(fmt.Sprintf("a%d/m%d/z%d", v.alen, v.mlen, v.zlen), func(t *testing.T) {
			header := pattern(v.alen, 0x00)
			payload := pattern(v.mlen, 0x20)
			trailer := pattern(v.zlen, 0x40)

			got := aead.Encrypt(nil, testKey(), testNonce(), header, payload, trailer)
			want, err := hex.DecodeString(v.ciphertext + v.tag)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("Encrypt = %x, want %x", got, want)
			}

			plaintext, err := aead.Decrypt(nil, testKey(), testNonce(), header, got, trailer)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(plaintext, payload) {
				t.Errorf("Decrypt = %x, want %x", plaintext, payload)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	key := testKey()
	nonce := testNonce()

	for _, n := range []int{0, 1, 31, 95, 96, 97, 191, 192, 193, 1024} {
		payload := pattern(n, 0x20)
		ciphertext := aead.Encrypt(nil, key, nonce, []byte("header"), payload, []byte("trailer"))
		if got, want := len(ciphertext), n+aead.TagSize; got != want {
			t.Errorf("len(ciphertext) = %d, want %d", got, want)
		}

		plaintext, err := aead.Decrypt(nil, key, nonce, []byte("header"), ciphertext, []byte("trailer"))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if !bytes.Equal(plaintext, payload) {
			t.Errorf("n=%d: round trip = %x, want %x", n, plaintext, payload)
		}
	}
}

func TestAppend(t *testing.T) {
	key := testKey()
	nonce := testNonce()
	payload := []byte("a payload")

	ciphertext := aead.Encrypt([]byte("prefix"), key, nonce, nil, payload, nil)
	if !bytes.HasPrefix(ciphertext, []byte("prefix")) {
		t.Fatalf("Encrypt did not append to dst: %x", ciphertext)
	}

	plaintext, err := aead.Decrypt([]byte("prefix"), key, nonce, nil, ciphertext[len("prefix"):], nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(plaintext) != "prefix"+"a payload" {
		t.Errorf("Decrypt = %q", plaintext)
	}
}

func TestTampering(t *testing.T) {
	key := testKey()
	nonce := testNonce()
	header := []byte("header")
	payload := pattern(120, 0x20)
	trailer := []byte("trailer")
	ciphertext := aead.Encrypt(nil, key, nonce, header, payload, trailer)

	check := func(t *testing.T, key, nonce, header, ct, trailer []byte) {
		t.Helper()
		plaintext, err := aead.Decrypt(nil, key, nonce, header, ct, trailer)
		if !errors.Is(err, aead.ErrInvalidCiphertext) {
			t.Errorf("err = %v, want ErrInvalidCiphertext", err)
		}
		if plaintext != nil {
			t.Error("plaintext returned for an invalid ciphertext")
		}
	}

	t.Run("ciphertext bit", func(t *testing.T) {
		tampered := bytes.Clone(ciphertext)
		tampered[17] ^= 0x40
		check(t, key, nonce, header, tampered, trailer)
	})

	t.Run("tag bit", func(t *testing.T) {
		tampered := bytes.Clone(ciphertext)
		tampered[len(tampered)-1] ^= 0x01
		check(t, key, nonce, header, tampered, trailer)
	})

	t.Run("header", func(t *testing.T) {
		check(t, key, nonce, []byte("headex"), ciphertext, trailer)
	})

	t.Run("missing header", func(t *testing.T) {
		check(t, key, nonce, nil, ciphertext, trailer)
	})

	t.Run("trailer", func(t *testing.T) {
		check(t, key, nonce, header, ciphertext, []byte("trailex"))
	})

	t.Run("missing trailer", func(t *testing.T) {
		check(t, key, nonce, header, ciphertext, nil)
	})

	t.Run("wrong key", func(t *testing.T) {
		check(t, pattern(aead.KeySize, 0x80), nonce, header, ciphertext, trailer)
	})

	t.Run("wrong nonce", func(t *testing.T) {
		check(t, key, pattern(aead.NonceSize, 0x80), header, ciphertext, trailer)
	})

	t.Run("truncated", func(t *testing.T) {
		check(t, key, nonce, header, ciphertext[:aead.TagSize-1], trailer)
	})
}

func TestAEAD(t *testing.T) {
	a := aead.New(testKey())
	if got, want := a.NonceSize(), aead.NonceSize; got != want {
		t.Errorf("NonceSize = %d, want %d", got, want)
	}
	if got, want := a.Overhead(), aead.TagSize; got != want {
		t.Errorf("Overhead = %d, want %d", got, want)
	}

	nonce := testNonce()
	plaintext := []byte("sealed with a cipher.AEAD")
	ciphertext := a.Seal(nil, nonce, plaintext, []byte("ad"))

	got, err := a.Open(nil, nonce, ciphertext, []byte("ad"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open = %q, want %q", got, plaintext)
	}

	if _, err := a.Open(nil, nonce, ciphertext, []byte("ax")); !errors.Is(err, aead.ErrInvalidCiphertext) {
		t.Errorf("err = %v, want ErrInvalidCiphertext", err)
	}

	// Seal with additional data must match Encrypt with the same header and an
	// empty trailer.
	direct := aead.Encrypt(nil, testKey(), nonce, []byte("ad"), plaintext, nil)
	if !bytes.Equal(ciphertext, direct) {
		t.Errorf("Seal = %x, Encrypt = %x", ciphertext, direct)
	}
}

func TestBadKeyNonceSizes(t *testing.T) {
	expectPanic := func(t *testing.T, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Error("no panic")
			}
		}()
		f()
	}

	t.Run("encrypt short key", func(t *testing.T) {
		expectPanic(t, func() { aead.Encrypt(nil, pattern(16, 0), testNonce(), nil, nil, nil) })
	})
	t.Run("encrypt short nonce", func(t *testing.T) {
		expectPanic(t, func() { aead.Encrypt(nil, testKey(), pattern(12, 0), nil, nil, nil) })
	})
	t.Run("decrypt short key", func(t *testing.T) {
		expectPanic(t, func() { _, _ = aead.Decrypt(nil, pattern(16, 0), testNonce(), nil, pattern(32, 0), nil) })
	})
	t.Run("new short key", func(t *testing.T) {
		expectPanic(t, func() { aead.New(pattern(16, 0)) })
	})
	t.Run("seal short nonce", func(t *testing.T) {
		expectPanic(t, func() { aead.New(testKey()).Seal(nil, pattern(12, 0), nil, nil) })
	})
}
