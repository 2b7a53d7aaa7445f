package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/expense-intake/internal/extraction"
	"github.com/zombor/expense-intake/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		recognizer  *mockRecognizer
		roster      *mockRoster
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	// do routes exactly one request through a freshly built Server
	do := func(req *http.Request) *http.Response {
		server := NewServerWithMux(newTestService(recognizer, roster), auth, "1.2.3", http.NewServeMux())
		ghttpServer.AppendHandlers(server.ServeHTTP)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	newRequest := func(method, path string, body io.Reader) *http.Request {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		return req
	}

	postJSON := func(path string, v any) *http.Response {
		data, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		req := newRequest(http.MethodPost, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		return do(req)
	}

	upload := func(filename string, data []byte) *http.Response {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		req := newRequest(http.MethodPost, "/api/receipts/extract", &b)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return do(req)
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	BeforeEach(func() {
		recognizer = &mockRecognizer{}
		roster = newMockRoster()
		auth = BasicAuth{}
		ghttpServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("handleHealth", func() {
		It("should report the version", func() {
			resp := do(newRequest(http.MethodGet, "/healthz", nil))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]string
			decode(resp, &body)
			Expect(body).To(Equal(map[string]string{"status": "ok", "version": "1.2.3"}))
		})
	})

	Describe("handleExtractReceipt", func() {
		When("recognition succeeds", func() {
			BeforeEach(func() {
				recognizer.text = "Corner Shop\nMilk 2.99\nBread 3.49\nTotal $6.48"
			})

			It("should return the receipt data", func() {
				resp := upload("receipt.jpg", []byte("fake image data"))
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var body map[string]any
				decode(resp, &body)
				Expect(body["merchant"]).To(Equal("Corner Shop"))
				Expect(body["total_amount"]).To(Equal("6.48"))
				Expect(body["items"]).To(Equal([]any{"Corner Shop", "Milk", "Bread"}))
				Expect(body["description"]).To(Equal("Corner Shop: Milk, Bread"))
				Expect(body["date_defaulted"]).To(BeTrue())
			})
		})

		When("the recognizer fails", func() {
			BeforeEach(func() {
				recognizer.err = errors.New("upstream down")
			})

			It("should return status Bad Gateway", func() {
				resp := upload("receipt.jpg", []byte("fake image data"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			})
		})

		When("the upload is not an image", func() {
			BeforeEach(func() {
				recognizer.err = scanning.ErrUnsupportedFormat
			})

			It("should return status Bad Request", func() {
				resp := upload("notes.txt", []byte("hello"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the file is empty", func() {
			It("should return status Bad Request", func() {
				resp := upload("receipt.jpg", nil)
				var body map[string]string
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				decode(resp, &body)
				Expect(body["error"]).To(Equal("File is empty"))
				Expect(recognizer.calls).To(BeZero())
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				Expect(writer.Close()).To(Succeed())
				req := newRequest(http.MethodPost, "/api/receipts/extract", &b)
				req.Header.Set("Content-Type", writer.FormDataContentType())

				resp := do(req)
				var body map[string]string
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				decode(resp, &body)
				Expect(body["error"]).To(Equal("No file provided"))
			})
		})

		When("the form is invalid", func() {
			It("should return status Bad Request", func() {
				req := newRequest(http.MethodPost, "/api/receipts/extract", strings.NewReader("invalid"))
				req.Header.Set("Content-Type", "multipart/form-data")

				resp := do(req)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleParseReceiptText", func() {
		It("should extract fields from posted text", func() {
			resp := postJSON("/api/receipts/parse", map[string]string{"text": "Corner Shop\n2024-05-01\nTotal $6.48"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]any
			decode(resp, &body)
			Expect(body["date"]).To(Equal("2024-05-01T00:00:00Z"))
			Expect(body["date_defaulted"]).To(BeFalse())
			Expect(recognizer.calls).To(BeZero())
		})
	})

	Describe("handleParseExpense", func() {
		BeforeEach(func() {
			Expect(roster.SaveMember("smith", extraction.Member{ID: "john", Name: "John"})).To(Succeed())
			Expect(roster.SaveMember("smith", extraction.Member{ID: "sarah", Name: "Sarah"})).To(Succeed())
		})

		When("the sentence names manual shares", func() {
			It("should return a manual split", func() {
				resp := postJSON("/api/expenses/parse", map[string]any{
					"text":         "Rent $1200 John pays $400, Sarah pays $400",
					"household_id": "smith",
				})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body map[string]any
				decode(resp, &body)
				Expect(body["amount"]).To(Equal("1200"))
				Expect(body["split_method"]).To(Equal("manual"))
				Expect(body["manual_shares"]).To(Equal(map[string]any{"john": "400", "sarah": "400"}))
				Expect(body).NotTo(HaveKey("percentage"))
			})
		})

		When("the members are passed inline", func() {
			It("should match against them", func() {
				resp := postJSON("/api/expenses/parse", map[string]any{
					"text":    "Pizza $24.50 with Ana",
					"members": []map[string]string{{"id": "ana", "name": "Ana"}},
				})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body map[string]any
				decode(resp, &body)
				Expect(body["participants"]).To(Equal([]any{"ana"}))
				Expect(body["split_method"]).To(Equal("even"))
			})
		})

		When("the text is empty", func() {
			It("should return the default expense", func() {
				resp := postJSON("/api/expenses/parse", map[string]string{"text": ""})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body map[string]any
				decode(resp, &body)
				Expect(body["description"]).To(Equal("Expense"))
				Expect(body["split_method"]).To(Equal("even"))
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request", func() {
				resp := do(newRequest(http.MethodPost, "/api/expenses/parse", strings.NewReader("{")))
				var body map[string]string
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				decode(resp, &body)
				Expect(body["error"]).To(Equal("Invalid request body"))
			})
		})

		When("the roster fails", func() {
			BeforeEach(func() {
				roster.listErr = errors.New("disk gone")
			})

			It("should return status Internal Server Error", func() {
				resp := postJSON("/api/expenses/parse", map[string]string{"text": "Lunch $12", "household_id": "smith"})
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleParseShoppingList", func() {
		It("should return the parsed items", func() {
			resp := postJSON("/api/shopping-lists/parse", map[string]string{"text": "milk, 2kg chicken, 3 eggs, 1 liter of water"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Items []map[string]any `json:"items"`
			}
			decode(resp, &body)
			Expect(body.Items).To(Equal([]map[string]any{
				{"name": "milk"},
				{"name": "chicken", "weight": "2", "weight_unit": "kg"},
				{"name": "eggs", "quantity": float64(3)},
				{"name": "water", "weight": "1", "weight_unit": "liter"},
			}))
		})

		It("should return an empty array for empty text", func() {
			resp := postJSON("/api/shopping-lists/parse", map[string]string{"text": ""})
			defer resp.Body.Close()
			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(MatchJSON(`{"items": []}`))
		})
	})

	Describe("household members", func() {
		It("should add a member", func() {
			resp := postJSON("/api/households/smith/members", map[string]string{"name": "Sarah"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var member extraction.Member
			decode(resp, &member)
			Expect(member).To(Equal(extraction.Member{ID: "member-1", Name: "Sarah"}))
			Expect(roster.ListMembers("smith")).To(ConsistOf(member))
		})

		It("should reject a member without a name", func() {
			resp := postJSON("/api/households/smith/members", map[string]string{"name": " "})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should list members as an array", func() {
			resp := do(newRequest(http.MethodGet, "/api/households/empty/members", nil))
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(MatchJSON(`[]`))
		})

		It("should delete a member", func() {
			Expect(roster.SaveMember("smith", extraction.Member{ID: "john", Name: "John"})).To(Succeed())

			resp := do(newRequest(http.MethodDelete, "/api/households/smith/members/john", nil))
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(roster.ListMembers("smith")).To(BeEmpty())
		})

		It("should return Not Found for an unknown member", func() {
			resp := do(newRequest(http.MethodDelete, "/api/households/smith/members/nobody", nil))
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do(newRequest(http.MethodOptions, "/api/expenses/parse", nil))
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should reject requests without credentials", func() {
			resp := postJSON("/api/shopping-lists/parse", map[string]string{"text": "milk"})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("should reject wrong credentials", func() {
			req := newRequest(http.MethodGet, "/api/households/smith/members", nil)
			req.SetBasicAuth("admin", "wrong")
			resp := do(req)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should accept the right credentials", func() {
			req := newRequest(http.MethodGet, "/api/households/smith/members", nil)
			req.SetBasicAuth("admin", "secret")
			resp := do(req)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should leave the health check open", func() {
			resp := do(newRequest(http.MethodGet, "/healthz", nil))
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
