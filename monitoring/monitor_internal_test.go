package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ptpsim/sim"
	"github.com/sarchlab/ptpsim/simulator"
)

type sampleComponent struct {
	name    string
	Counter int
	Label   string
}

func (c *sampleComponent) Name() string {
	return c.name
}

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		handler http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		handler = m.Handler()
	})

	It("should replace reserved ports", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
		Expect(m.WithPortNumber(0).portNumber).To(Equal(0))
	})

	It("should report the engine time", func() {
		Expect(get("/api/now").Code).To(Equal(http.StatusServiceUnavailable))

		m.RegisterEngine(sim.NewSerialEngine())

		rsp := get("/api/now")
		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.String()).To(Equal(`{"now":0.0000000000}`))

		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
	})

	It("should list and show components", func() {
		m.RegisterComponent(&sampleComponent{name: "Sim", Counter: 3, Label: "x"})
		m.RegisterComponent(&sampleComponent{name: "Estimator"})

		var names []string
		Expect(json.Unmarshal(get("/api/list_components").Body.Bytes(), &names)).
			To(Succeed())
		Expect(names).To(Equal([]string{"Sim", "Estimator"}))

		rsp := get("/api/component/Sim")
		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.Len()).To(BeNumerically(">", 0))

		Expect(get("/api/component/Nothing").Code).To(Equal(http.StatusNotFound))
	})

	It("should show a component while its simulation runs", func() {
		engine := sim.NewSerialEngine()
		s, err := simulator.MakeBuilder().
			WithEngine(engine).
			WithNumExchanges(3000).
			Build("Simulator")
		Expect(err).NotTo(HaveOccurred())

		m.RegisterEngine(engine)
		m.RegisterComponent(s)

		done := make(chan error)
		go func() {
			done <- s.Run()
		}()

		field := url.PathEscape(`{"comp_name":"Simulator","field_name":"exchanges"}`)

	poll:
		for {
			select {
			case err := <-done:
				Expect(err).NotTo(HaveOccurred())
				break poll
			default:
				Expect(get("/api/component/Simulator").Code).To(Equal(http.StatusOK))
				Expect(get("/api/field/" + field).Code).To(Equal(http.StatusOK))
			}
		}

		Expect(s.Data()).To(HaveLen(3000))
	})

	It("should keep a paused engine paused after showing a component", func() {
		m.RegisterEngine(sim.NewSerialEngine())
		m.RegisterComponent(&sampleComponent{name: "Sim"})

		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/component/Sim").Code).To(Equal(http.StatusOK))
		Expect(m.enginePaused).To(BeTrue())

		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Expect(m.enginePaused).To(BeFalse())
	})

	It("should reject malformed field requests", func() {
		m.RegisterComponent(&sampleComponent{name: "Sim"})

		rsp := get("/api/field/" + url.PathEscape("{not json"))
		Expect(rsp.Code).To(Equal(http.StatusBadRequest))

		req := url.PathEscape(`{"comp_name":"Other","field_name":"Counter"}`)
		Expect(get("/api/field/" + req).Code).To(Equal(http.StatusNotFound))
	})

	It("should report progress bars", func() {
		bar := m.CreateProgressBar("Optimization", 315)
		bar.IncrementInProgress(2)
		bar.MoveInProgressToFinished(1)
		bar.IncrementFinished(4)

		other := m.CreateProgressBar("Simulation", 2000)
		Expect(other.ID).NotTo(Equal(bar.ID))

		var bars []ProgressBarState
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())

		Expect(bars).To(HaveLen(2))
		Expect(bars[0].Name).To(Equal("Optimization"))
		Expect(bars[0].Total).To(Equal(uint64(315)))
		Expect(bars[0].Finished).To(Equal(uint64(5)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("Simulation"))
	})

	It("should report resources", func() {
		rsp := get("/api/resource")
		Expect(rsp.Code).To(Equal(http.StatusOK))

		var res resourceRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &res)).To(Succeed())
		Expect(res.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a profile", func() {
		m.profileDuration = 10 * time.Millisecond

		rsp := get("/api/profile")
		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.String()).To(ContainSubstring("SampleType"))
	})

	It("should serve over the network", func() {
		port, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer m.StopServer()

		Expect(port).To(BeNumerically(">", 0))

		m.CreateProgressBar("Simulation", 10)

		rsp, err := http.Get("http://localhost:" + strconv.Itoa(port) + "/api/progress")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"name":"Simulation"`))
	})
})
