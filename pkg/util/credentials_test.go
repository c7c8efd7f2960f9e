package util_test

import (
	. "github.com/Peripli/character-gallery/pkg/util"
	"golang.org/x/crypto/bcrypt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Credentials", func() {
	It("generates a hash matching the password", func() {
		username, password, passwordHash, err := GenerateBasicCredentials()
		Expect(err).ToNot(HaveOccurred())
		Expect(username).ToNot(BeEmpty())
		Expect(password).ToNot(BeEmpty())
		Expect(bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))).To(Succeed())
	})

	It("generates different credentials each time", func() {
		first, _, _, err := GenerateBasicCredentials()
		Expect(err).ToNot(HaveOccurred())
		second, _, _, err := GenerateBasicCredentials()
		Expect(err).ToNot(HaveOccurred())
		Expect(first).ToNot(Equal(second))
	})
})
