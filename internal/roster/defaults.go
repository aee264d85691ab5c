package roster

// DefaultAgents is the office roster used by "agents seed".
var DefaultAgents = []Agent{
	{Name: "General Office", Email: "admin@prdburleighheads.com.au"},
	{Name: "Adrian Sechtig", Email: "adrian@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2021/10/Adrian-1.png"},
	{Name: "Alex Kennedy", Email: "alex@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2025/01/Alex-Kennedy.png"},
	{Name: "Ben Fields", Email: "ben@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2021/10/Ben-Fields.png"},
	{Name: "Ben Snell", Email: "bens@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/03/Ben-Snell.png"},
	{Name: "Braiden Smith", Email: "braiden@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2021/10/Braiden-Smith.png"},
	{Name: "Bronte Hodgins", Email: "bronte@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/10/Bronte-Hodgins.png"},
	{Name: "Caitlin Gall", Email: "caitlin@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/03/Caitlin-Gall.png"},
	{Name: "Callum Fitzgerald", Email: "callum@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2024/02/Callum-Fitzgerald.png"},
	{Name: "Dean Wildbore", Email: "dean@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/03/Dean-Wildbore.png"},
	{Name: "Ellen Nicholl", Email: "ellen@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2024/07/Ellen-Nicholl.png"},
	{Name: "Freddie Tehle", Email: "freddie@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2021/10/Freddie-Tehle.png"},
	{Name: "Grace Sullivan", Email: "grace@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2024/07/Grace-Sullivan.png"},
	{Name: "Jade Dearlove", Email: "jade@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/03/Jade-Dearlove.png"},
	{Name: "Jemma Psaila", Email: "jemma@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2024/02/Jemma-Psaila.png"},
	{Name: "Jessie Leeming", Email: "jessie@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/11/Jessie-Leeming.png"},
	{Name: "John Fischer", Email: "john@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2021/10/John-Fischer.png"},
	{Name: "Luke Wright", Email: "luke@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/03/Luke-Wright.png"},
	{Name: "Mark Shinners", Email: "mark@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2021/10/Mark-Shinners.png"},
	{Name: "Paddy Quinn", Email: "paddy@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/03/Paddy-Quinn.png"},
	{Name: "Paula Dunford", Email: "paula@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2022/07/Paula.png"},
	{Name: "Shelley Watkins", Email: "shelley@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2021/10/Shelley-Watkins.png"},
	{Name: "Talitha Jose", Email: "talitha@prdburleighheads.com.au", Photo: "https://prdburleighheads.com.au/wp-content/uploads/2023/03/Talitha-Jose.png"},
}
