package signals

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("termination handlers", func() {
	It("runs the handlers in order and reports termination", func() {
		var calls []string
		RegisterGracefulTerminationHandler(func() { calls = append(calls, "http") })
		RegisterGracefulTerminationHandler(func() { calls = append(calls, "app") })

		Consistently(Terminated()).ShouldNot(BeClosed())

		runHandlers()

		Expect(calls).To(Equal([]string{"http", "app"}))
		Eventually(Terminated()).Should(BeClosed())
	})
})
