package optim

import (
	"fmt"
	"math"

	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	params := append(net.Parameters(), theta)
//	optimizer := optim.NewAdam(params, optim.AdamConfig{LR: 1e-3}, backend)
//	grads := backend.Tape().Backward(loss.Raw(), seed, backend)
//	optimizer.Step(grads)
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int                            // Timestep for bias correction
	m      map[*nn.Parameter[B]][]float64 // First moment estimates
	v      map[*nn.Parameter[B]][]float64 // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, _ B) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*nn.Parameter[B]][]float64),
		v:      make(map[*nn.Parameter[B]][]float64),
	}
}

// Step performs a single optimization step using Adam algorithm.
//
// Parameters with no gradient are skipped.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for _, param := range a.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}
		param.SetGrad(tensor.New(grad, param.Tensor().Backend()))

		n := param.Tensor().NumElements()
		m, ok := a.m[param]
		if !ok {
			m = make([]float64, n)
			a.m[param] = m
		}
		v, ok := a.v[param]
		if !ok {
			v = make([]float64, n)
			a.v[param] = v
		}

		a.updateParameter(param.Tensor().Data(), grad.Data(), m, v, biasCorrection1, biasCorrection2)
	}
}

// updateParameter performs Adam update for a single parameter.
func (a *Adam[B]) updateParameter(paramData, gradData, m, v []float64, biasCorrection1, biasCorrection2 float64) {
	for i := range paramData {
		g := gradData[i]

		m[i] = a.beta1*m[i] + (1.0-a.beta1)*g
		v[i] = a.beta2*v[i] + (1.0-a.beta2)*g*g

		mHat := m[i] / biasCorrection1
		vHat := v[i] / biasCorrection2

		paramData[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float64 {
	return a.lr
}

// SetLR sets the learning rate.
func (a *Adam[B]) SetLR(lr float64) {
	a.lr = lr
}

// GetTimestep returns the number of steps taken.
func (a *Adam[B]) GetTimestep() int {
	return a.t
}

// Type returns the optimizer name stored in checkpoints.
func (a *Adam[B]) Type() string {
	return "Adam"
}

// Config returns the hyperparameters stored in checkpoints.
func (a *Adam[B]) Config() map[string]any {
	return map[string]any{
		"lr":    a.lr,
		"beta1": a.beta1,
		"beta2": a.beta2,
		"eps":   a.eps,
	}
}

// StateDict exports the moment estimates keyed by parameter name
// ("m.<name>", "v.<name>") together with the timestep ("step").
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for _, param := range a.params {
		m, ok := a.m[param]
		if !ok {
			continue
		}
		shape := param.Tensor().Shape()
		state["m."+param.Name()], _ = tensor.RawFromSlice(m, shape, tensor.CPU)
		state["v."+param.Name()], _ = tensor.RawFromSlice(a.v[param], shape, tensor.CPU)
	}
	step, _ := tensor.RawFromSlice([]float64{float64(a.t)}, tensor.Shape{1}, tensor.CPU)
	state["step"] = step
	return state
}

// LoadStateDict restores moment estimates written by StateDict.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if step, ok := stateDict["step"]; ok {
		a.t = int(step.Item())
	}
	for _, param := range a.params {
		m, okM := stateDict["m."+param.Name()]
		v, okV := stateDict["v."+param.Name()]
		if !okM && !okV {
			continue
		}
		if !okM || !okV {
			return fmt.Errorf("adam state for %s is incomplete", param.Name())
		}
		n := param.Tensor().NumElements()
		if m.NumElements() != n || v.NumElements() != n {
			return fmt.Errorf("adam state for %s has %d elements, expected %d",
				param.Name(), m.NumElements(), n)
		}
		a.m[param] = append([]float64(nil), m.Data()...)
		a.v[param] = append([]float64(nil), v.Data()...)
	}
	return nil
}
