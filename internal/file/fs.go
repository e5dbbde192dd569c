package file

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"filippo.io/age"
)

// OpenFS opens path as a file system. Directories are used as is, *.zip files
// are read as archives, and *.zip.age files are decrypted with pw first.
func OpenFS(path, pw string) (fs.FS, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", path, err)
	}
	if st.IsDir() {
		return os.DirFS(path), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %v: %w", path, err)
	}
	if strings.HasSuffix(path, ".age") {
		data, err = Decrypt(data, pw)
		if err != nil {
			return nil, fmt.Errorf("could not decrypt %v: %w", path, err)
		}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("could not open archive %v: %w", path, err)
	}
	return zr, nil
}

// Decrypt decrypts age ciphertext protected by the passphrase pw.
func Decrypt(ciphertext []byte, pw string) ([]byte, error) {
	id, err := age.NewScryptIdentity(pw)
	if err != nil {
		return nil, fmt.Errorf("could not build scrypt identity: %w", err)
	}
	plaintextReader, err := age.Decrypt(bytes.NewReader(ciphertext), id)
	if err != nil {
		return nil, fmt.Errorf("could not start decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(plaintextReader)
	if err != nil {
		return nil, fmt.Errorf("could not finish decrypting: %w", err)
	}
	return plaintext, nil
}

// scryptWorkFactor is the log2 of the scrypt cost of new ciphertexts. Zero
// keeps the age default.
var scryptWorkFactor = 0

// Encrypt encrypts plaintext with the passphrase pw.
func Encrypt(plaintext []byte, pw string) ([]byte, error) {
	r, err := age.NewScryptRecipient(pw)
	if err != nil {
		return nil, fmt.Errorf("could not build scrypt recipient: %w", err)
	}
	if scryptWorkFactor > 0 {
		r.SetWorkFactor(scryptWorkFactor)
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, r)
	if err != nil {
		return nil, fmt.Errorf("could not start encrypting: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("could not encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("could not finish encrypting: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to name, encrypted with pw if name ends in .age.
func WriteFile(name string, data []byte, pw string) (err error) {
	if strings.HasSuffix(name, ".age") {
		data, err = Encrypt(data, pw)
		if err != nil {
			return fmt.Errorf("could not encrypt %v: %w", name, err)
		}
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create %v: %w", name, err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	_, err = f.Write(data)
	return err
}
