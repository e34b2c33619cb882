package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/amba/sim"
)

type sampleComponent struct {
	*sim.ComponentBase

	Count  int
	buffer sim.Buffer
}

func newSampleComponent(name string, capacity int) *sampleComponent {
	return &sampleComponent{
		ComponentBase: sim.NewComponentBase(name),
		buffer:        sim.NewBuffer(name+".Queue", capacity),
	}
}

type fixedClock sim.VTimeInSec

func (c fixedClock) CurrentTime() sim.VTimeInSec {
	return sim.VTimeInSec(c)
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		router http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		router = m.Router()
	})

	It("should register components and internal buffers", func() {
		c := newSampleComponent("Comp", 10)
		m.RegisterComponent(c)

		Expect(m.components).To(ContainElement(c))
		Expect(m.buffers).To(ContainElement(c.buffer))
	})

	It("should list components", func() {
		m.RegisterComponent(newSampleComponent("Soc.Master", 4))
		m.RegisterComponent(newSampleComponent("Soc.Ram", 4))

		rec := get("/api/list_components")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"Soc.Master", "Soc.Ram"}))
	})

	It("should serialize a component", func() {
		c := newSampleComponent("Soc.Master", 4)
		c.Count = 42
		m.RegisterComponent(c)

		rec := get("/api/component/Soc.Master")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("42"))
	})

	It("should return 404 for unknown components", func() {
		rec := get("/api/component/Soc.Nope")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject a malformed field query", func() {
		rec := get("/api/field/notjson")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report the time from the time teller", func() {
		m.RegisterTimeTeller(fixedClock(2.5e-8))

		rec := get("/api/now")

		var rsp struct{ Now float64 }
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Now).To(BeNumerically("~", 2.5e-8, 1e-12))
	})

	It("should refuse to pause without an engine", func() {
		rec := get("/api/pause")

		Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should pause and continue the engine", func() {
		engine := sim.NewSerialEngine()
		m.RegisterEngine(engine)

		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
	})

	Context("hang detector", func() {
		var full, half, empty *sampleComponent

		BeforeEach(func() {
			full = newSampleComponent("Full", 2)
			full.buffer.Push(1)
			full.buffer.Push(2)

			half = newSampleComponent("Half", 8)
			for i := 0; i < 4; i++ {
				half.buffer.Push(i)
			}

			empty = newSampleComponent("Empty", 4)

			m.RegisterComponent(empty)
			m.RegisterComponent(half)
			m.RegisterComponent(full)
		})

		bufferNames := func(path string) []string {
			rec := get(path)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var rsp []struct {
				Buffer string `json:"buffer"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())

			names := make([]string, 0, len(rsp))
			for _, r := range rsp {
				names = append(names, r.Buffer)
			}

			return names
		}

		It("should sort by percent by default", func() {
			Expect(bufferNames("/api/hangdetector/buffers")).To(Equal(
				[]string{"Full.Queue", "Half.Queue", "Empty.Queue"}))
		})

		It("should sort by level", func() {
			Expect(bufferNames("/api/hangdetector/buffers?sort=level")).To(Equal(
				[]string{"Half.Queue", "Full.Queue", "Empty.Queue"}))
		})

		It("should page the result", func() {
			Expect(bufferNames(
				"/api/hangdetector/buffers?limit=1&offset=1")).To(Equal(
				[]string{"Half.Queue"}))
		})

		It("should reject an unknown sort method", func() {
			rec := get("/api/hangdetector/buffers?sort=name")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("Script", 10)
		bar.IncrementFinished(3)

		rec := get("/api/progress")
		Expect(rec.Body.String()).To(ContainSubstring(`"finished":3`))

		m.CompleteProgressBar(bar)
		rec = get("/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should serve on a random port", func() {
		Expect(m.URL()).To(BeEmpty())

		port := m.StartServer()
		defer m.StopServer()

		Expect(port).To(BeNumerically(">", 0))
		Expect(m.URL()).To(HaveSuffix(":" + strconv.Itoa(port)))

		rsp, err := http.Get(m.URL() + "/api/list_components")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
