package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cryptobroker/internal/domain"
)

// InputParams — параметры, собранные интерактивно в CLI.
type InputParams struct {
	Action domain.Action

	// Symbol вида <COIN>USD: долларовые псевдонимы котировок дают адаптеры,
	// поэтому один и тот же символ находит пару на обеих биржах.
	Symbol string
	Size   float64
}

// GetInteractiveParams — опрос пользователя в терминале.
func GetInteractiveParams() InputParams {
	reader := bufio.NewReader(os.Stdin)

	// 0) Выбор действия
	action := askAction(reader)

	// 1) Список монет для выбора
	coins := []string{"BTC", "ETH", "ADA", "SOL", "XRP"}

	if action == domain.Buy {
		fmt.Println("\nКакую монету покупаем?")
	} else {
		fmt.Println("\nКакую монету продаём?")
	}
	coin := askFromList(reader, coins, 1)

	var size float64
	if action == domain.Buy {
		prompt := fmt.Sprintf("\nСколько %s купить? (Enter = 100.0): ", coin)
		size = askFloat(reader, prompt, 100.0)
	} else {
		prompt := fmt.Sprintf("\nСколько %s продать? (Enter = 1.0): ", coin)
		size = askFloat(reader, prompt, 1.0)
	}

	return InputParams{
		Action: action,
		Symbol: coin + "USD",
		Size:   size,
	}
}

// AskConfirm — да/нет с дефолтом «нет»: реальная заявка требует явного
// согласия.
func AskConfirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(prompt + " [y/N]: ")

	raw, _ := reader.ReadString('\n')
	raw = strings.ToLower(strings.TrimSpace(raw))
	return raw == "y" || raw == "yes" || raw == "д" || raw == "да"
}

func askAction(r *bufio.Reader) domain.Action {
	for {
		fmt.Println("Выберите действие:")
		fmt.Println("1) Купить монету за доллары")
		fmt.Println("2) Продать монету за доллары")
		fmt.Print("Ваш выбор [1-2] (Enter = 1): ")

		raw, _ := r.ReadString('\n')
		raw = strings.TrimSpace(raw)

		switch raw {
		case "", "1":
			return domain.Buy
		case "2":
			return domain.Sell
		default:
			fmt.Println("Введите 1 или 2, либо нажмите Enter для значения по умолчанию.")
		}
	}
}

func askFromList(r *bufio.Reader, options []string, defIndex1 int) string {
	for i, c := range options {
		fmt.Printf("%d) %s\n", i+1, c)
	}
	fmt.Printf("Ваш выбор [1-%d] (Enter = %d): ", len(options), defIndex1)

	raw, _ := r.ReadString('\n')
	raw = strings.TrimSpace(raw)

	idx := defIndex1
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			idx = n
		}
	}
	if idx < 1 || idx > len(options) {
		idx = defIndex1
	}
	return options[idx-1]
}

func askFloat(r *bufio.Reader, prompt string, def float64) float64 {
	for {
		fmt.Print(prompt)
		raw, _ := r.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return def
		}
		// поддержим запятую как разделитель
		raw = strings.ReplaceAll(raw, ",", ".")
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			return v
		}
		fmt.Println("Введите положительное число (например, 100 или 0,5).")
	}
}
