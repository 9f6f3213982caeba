package utils_test

import (
	. "github.com/mudler/LocalDiffusion/pkg/utils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("utils/base64 tests", func() {
	It("DecodeBase64Image decodes plain payloads", func() {
		data, err := DecodeBase64Image(EncodeBase64Image([]byte("FOO")))
		Expect(err).To(BeNil())
		Expect(data).To(Equal([]byte("FOO")))
	})
	It("DecodeBase64Image can strip png data url prefixes", func() {
		data, err := DecodeBase64Image("data:image/png;base64,QkFS")
		Expect(err).To(BeNil())
		Expect(data).To(Equal([]byte("BAR")))
	})
	It("DecodeBase64Image can strip jpeg data url prefixes", func() {
		data, err := DecodeBase64Image("data:image/jpeg;base64,QkFS")
		Expect(err).To(BeNil())
		Expect(data).To(Equal([]byte("BAR")))
	})
	It("DecodeBase64Image returns an error for bogus data", func() {
		_, err := DecodeBase64Image("not base64!")
		Expect(err).ToNot(BeNil())
		_, err = DecodeBase64Image("")
		Expect(err).ToNot(BeNil())
	})
})
